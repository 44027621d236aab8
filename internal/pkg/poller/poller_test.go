package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/config"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/gate"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/nanokvm"
)

var errQuery = errors.New("query failed")

// mockDevice answers every status group from plain fields, with
// per-group error injection.
type mockDevice struct {
	mu   sync.Mutex
	fail map[model.StatusGroup]bool

	leds    nanokvm.LEDState
	virtual nanokvm.VirtualDeviceState
	network nanokvm.NetworkServiceState
	oled    nanokvm.OLEDState
	wifi    nanokvm.WiFiState
	hid     model.HIDMode
	info    nanokvm.Info
	hw      model.HardwareVersion
	image   string
	cdrom   bool
	jiggler model.JigglerMode
	hdmi    bool
}

func newMockDevice() *mockDevice {
	return &mockDevice{
		fail:    make(map[model.StatusGroup]bool),
		hid:     model.HIDModeNormal,
		info:    nanokvm.Info{MDNS: "nanokvm.local.", Application: "2.1.0"},
		hw:      model.HardwareBeta,
		jiggler: model.JigglerDisabled,
	}
}

func (m *mockDevice) setFailing(g model.StatusGroup, failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[g] = failing
}

func (m *mockDevice) failing(g model.StatusGroup) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fail[g]
}

func (m *mockDevice) GetLEDs(ctx context.Context) (nanokvm.LEDState, error) {
	if m.failing(model.GroupLEDs) {
		return nanokvm.LEDState{}, errQuery
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leds, nil
}

func (m *mockDevice) GetVirtualDevices(ctx context.Context) (nanokvm.VirtualDeviceState, error) {
	if m.failing(model.GroupVirtualDevices) {
		return nanokvm.VirtualDeviceState{}, errQuery
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.virtual, nil
}

func (m *mockDevice) GetNetworkServices(ctx context.Context) (nanokvm.NetworkServiceState, error) {
	if m.failing(model.GroupNetworkServices) {
		return nanokvm.NetworkServiceState{}, errQuery
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.network, nil
}

func (m *mockDevice) GetOLED(ctx context.Context) (nanokvm.OLEDState, error) {
	if m.failing(model.GroupOLED) {
		return nanokvm.OLEDState{}, errQuery
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.oled, nil
}

func (m *mockDevice) GetWiFi(ctx context.Context) (nanokvm.WiFiState, error) {
	if m.failing(model.GroupWiFi) {
		return nanokvm.WiFiState{}, errQuery
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wifi, nil
}

func (m *mockDevice) GetHIDMode(ctx context.Context) (model.HIDMode, error) {
	if m.failing(model.GroupHID) {
		return model.HIDModeUnknown, errQuery
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hid, nil
}

func (m *mockDevice) GetInfo(ctx context.Context) (nanokvm.Info, error) {
	if m.failing(model.GroupVersions) {
		return nanokvm.Info{}, errQuery
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info, nil
}

func (m *mockDevice) GetHardwareVersion(ctx context.Context) (model.HardwareVersion, error) {
	if m.failing(model.GroupVersions) {
		return "", errQuery
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hw, nil
}

func (m *mockDevice) GetMountedImage(ctx context.Context) (string, bool, error) {
	if m.failing(model.GroupStorage) {
		return "", false, errQuery
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.image, m.cdrom, nil
}

func (m *mockDevice) GetMouseJiggler(ctx context.Context) (model.JigglerMode, error) {
	if m.failing(model.GroupJiggler) {
		return "", errQuery
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jiggler, nil
}

func (m *mockDevice) GetHDMIOutput(ctx context.Context) (bool, error) {
	if m.failing(model.GroupHDMI) {
		return false, errQuery
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hdmi, nil
}

func (m *mockDevice) failAll() {
	for _, g := range model.BaseGroups {
		m.setFailing(g, true)
	}
	m.setFailing(model.GroupHDMI, true)
}

func newTestPoller(device *mockDevice) *Poller {
	return New(device, gate.New(), &config.DeviceConfig{
		PollInterval:     config.DefaultPollInterval,
		FailureThreshold: 3,
	})
}

func TestPoll_AllGroupsFresh(t *testing.T) {
	device := newMockDevice()
	device.leds = nanokvm.LEDState{Power: true}
	device.network = nanokvm.NetworkServiceState{SSHEnabled: true, MDNSEnabled: true}
	device.image = "/data/ubuntu.iso"

	p := newTestPoller(device)
	p.poll(context.Background())

	snapshot := p.Snapshot()
	require.NotNil(t, snapshot)
	assert.False(t, snapshot.Partial)
	assert.True(t, snapshot.PowerLED)
	assert.True(t, snapshot.SSHEnabled)
	assert.Equal(t, "/data/ubuntu.iso", snapshot.MountedImage)
	assert.Equal(t, "2.1.0", snapshot.ApplicationVersion)
	assert.Equal(t, model.HardwareBeta, snapshot.HardwareVersion)
	assert.True(t, p.Available())

	for _, g := range model.BaseGroups {
		assert.True(t, snapshot.GroupFresh(g), "group %s", g)
	}
	// Beta hardware carries no HDMI control, so the group is absent.
	_, polled := snapshot.Groups[model.GroupHDMI]
	assert.False(t, polled)
	assert.Nil(t, snapshot.HDMIOutput)
}

func TestPoll_HDMIGroupOnPCIE(t *testing.T) {
	device := newMockDevice()
	device.hw = model.HardwarePCIE
	device.hdmi = true

	p := newTestPoller(device)
	p.poll(context.Background())

	snapshot := p.Snapshot()
	require.NotNil(t, snapshot)
	assert.True(t, snapshot.HasCapability(model.CapabilityHDMIControl))
	assert.True(t, snapshot.GroupFresh(model.GroupHDMI))
	require.NotNil(t, snapshot.HDMIOutput)
	assert.True(t, *snapshot.HDMIOutput)
}

func TestPoll_PartialFailureRetainsStaleValues(t *testing.T) {
	device := newMockDevice()
	device.leds = nanokvm.LEDState{Power: true, HDD: true}
	device.network = nanokvm.NetworkServiceState{SSHEnabled: true}

	p := newTestPoller(device)
	p.poll(context.Background())
	require.False(t, p.Snapshot().Partial)

	device.setFailing(model.GroupLEDs, true)
	device.setFailing(model.GroupNetworkServices, true)
	p.poll(context.Background())

	snapshot := p.Snapshot()
	require.NotNil(t, snapshot)
	assert.True(t, snapshot.Partial)
	assert.True(t, p.Available())

	// Last known values survive, flagged stale.
	assert.True(t, snapshot.PowerLED)
	assert.True(t, snapshot.SSHEnabled)
	assert.False(t, snapshot.GroupFresh(model.GroupLEDs))
	assert.False(t, snapshot.GroupFresh(model.GroupNetworkServices))
	assert.True(t, snapshot.GroupFresh(model.GroupStorage))

	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.PollSuccess)
	assert.Equal(t, uint64(1), stats.PollPartial)
	assert.ElementsMatch(t, []model.StatusGroup{model.GroupLEDs, model.GroupNetworkServices}, stats.StaleGroups)
}

func TestPoll_StaleGroupRecovers(t *testing.T) {
	device := newMockDevice()
	p := newTestPoller(device)

	p.poll(context.Background())
	device.setFailing(model.GroupLEDs, true)
	p.poll(context.Background())
	require.False(t, p.Snapshot().GroupFresh(model.GroupLEDs))

	device.setFailing(model.GroupLEDs, false)
	device.mu.Lock()
	device.leds = nanokvm.LEDState{HDD: true}
	device.mu.Unlock()
	p.poll(context.Background())

	snapshot := p.Snapshot()
	assert.False(t, snapshot.Partial)
	assert.True(t, snapshot.GroupFresh(model.GroupLEDs))
	assert.True(t, snapshot.HDDLED)
}

func TestPoll_ConsecutiveFullFailures(t *testing.T) {
	device := newMockDevice()
	p := newTestPoller(device)

	var mu sync.Mutex
	var updates []model.Update
	p.Subscribe(func(u model.Update) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, u)
	})

	p.poll(context.Background())
	require.True(t, p.Available())
	published := p.Snapshot()

	device.failAll()
	p.poll(context.Background())
	p.poll(context.Background())
	assert.True(t, p.Available(), "still within the failure threshold")

	p.poll(context.Background())
	assert.False(t, p.Available())

	// The published snapshot is untouched by the failed polls.
	assert.Same(t, published, p.Snapshot())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 2)
	assert.True(t, updates[0].Available)
	last := updates[1]
	assert.False(t, last.Available)
	assert.Same(t, published, last.Snapshot)
}

func TestPoll_UnavailableWithoutPriorSuccess(t *testing.T) {
	device := newMockDevice()
	device.failAll()
	p := newTestPoller(device)

	var mu sync.Mutex
	var updates []model.Update
	p.Subscribe(func(u model.Update) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, u)
	})

	// Every poll fails from the start; crossing the threshold still
	// notifies subscribers once.
	p.poll(context.Background())
	p.poll(context.Background())
	p.poll(context.Background())
	p.poll(context.Background())
	assert.False(t, p.Available())
	assert.Nil(t, p.Snapshot())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 1)
	assert.False(t, updates[0].Available)
	assert.Nil(t, updates[0].Snapshot)
}

func TestPoll_RecoveryResetsFailureCount(t *testing.T) {
	device := newMockDevice()
	p := newTestPoller(device)

	p.poll(context.Background())
	device.failAll()
	p.poll(context.Background())
	p.poll(context.Background())

	// One good poll resets the streak.
	device.fail = make(map[model.StatusGroup]bool)
	p.poll(context.Background())
	require.True(t, p.Available())

	device.failAll()
	p.poll(context.Background())
	p.poll(context.Background())
	assert.True(t, p.Available())
	p.poll(context.Background())
	assert.False(t, p.Available())
}

func TestSubscribe_Ordering(t *testing.T) {
	device := newMockDevice()
	p := newTestPoller(device)

	var mu sync.Mutex
	var order []string
	p.Subscribe(func(model.Update) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "first")
	})
	p.Subscribe(func(model.Update) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "second")
	})

	p.poll(context.Background())
	p.poll(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second", "first", "second"}, order)
}

func TestRequestImmediateRefresh_Collapses(t *testing.T) {
	p := newTestPoller(newMockDevice())

	p.RequestImmediateRefresh()
	p.RequestImmediateRefresh()
	p.RequestImmediateRefresh()

	// The buffered request channel holds exactly one pending refresh.
	assert.Len(t, p.refreshCh, 1)
}

func TestStart_FirstPollImmediate(t *testing.T) {
	device := newMockDevice()
	p := newTestPoller(device)

	updates := make(chan model.Update, 1)
	p.Subscribe(func(u model.Update) {
		select {
		case updates <- u:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Start(ctx) }()

	select {
	case u := <-updates:
		assert.True(t, u.Available)
		require.NotNil(t, u.Snapshot)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot published after start")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestStart_StopEndsLoop(t *testing.T) {
	p := newTestPoller(newMockDevice())

	done := make(chan error, 1)
	go func() { done <- p.Start(context.Background()) }()

	p.Stop()
	p.Stop() // idempotent

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poll loop did not stop")
	}
}

func TestStart_SkipsTickWhileCommandWaiting(t *testing.T) {
	device := newMockDevice()
	g := gate.New()
	p := New(device, g, &config.DeviceConfig{
		PollInterval:     20 * time.Millisecond,
		FailureThreshold: 3,
	})

	var polls atomic.Int32
	p.Subscribe(func(model.Update) { polls.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Start(ctx) }()

	require.Eventually(t, func() bool { return p.Snapshot() != nil }, time.Second, 5*time.Millisecond)

	// Hold the device slot as a poll would, then queue a command
	// behind it. Ticks must be skipped while the command waits.
	g.Lock()
	release := make(chan struct{})
	go func() {
		g.LockCommand()
		<-release
		g.Unlock()
	}()
	require.Eventually(t, func() bool { return g.CommandsWaiting() }, time.Second, time.Millisecond)

	before := polls.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, polls.Load(), "ticks should be skipped while a command waits")

	g.Unlock()
	close(release)
}
