package dispatcher

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
)

type mockClient struct {
	mu    sync.Mutex
	calls []string

	PushButtonFunc func(ctx context.Context, button model.ButtonType, durationMs int) error
	SetToggleFunc  func(ctx context.Context, target model.ToggleTarget, enabled bool) error
	RebootFunc     func(ctx context.Context) error
}

func (m *mockClient) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockClient) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockClient) PushButton(ctx context.Context, button model.ButtonType, durationMs int) error {
	m.record("push_button")
	if m.PushButtonFunc != nil {
		return m.PushButtonFunc(ctx, button, durationMs)
	}
	return nil
}

func (m *mockClient) PasteText(ctx context.Context, text string) error {
	m.record("paste_text")
	return nil
}

func (m *mockClient) SetMouseJigglerMode(ctx context.Context, mode model.JigglerMode) error {
	m.record("set_mouse_jiggler")
	return nil
}

func (m *mockClient) SetToggle(ctx context.Context, target model.ToggleTarget, enabled bool) error {
	m.record("set_toggle")
	if m.SetToggleFunc != nil {
		return m.SetToggleFunc(ctx, target, enabled)
	}
	return nil
}

func (m *mockClient) Reboot(ctx context.Context) error {
	m.record("reboot")
	if m.RebootFunc != nil {
		return m.RebootFunc(ctx)
	}
	return nil
}

func (m *mockClient) ResetHDMI(ctx context.Context) error {
	m.record("reset_hdmi")
	return nil
}

func (m *mockClient) ResetHID(ctx context.Context) error {
	m.record("reset_hid")
	return nil
}

func (m *mockClient) UpdateApplication(ctx context.Context) error {
	m.record("update_application")
	return nil
}

func (m *mockClient) WakeOnLan(ctx context.Context, mac string) error {
	m.record("wake_on_lan")
	return nil
}

type mockPoller struct {
	snapshot *model.Snapshot
	refreshC atomic.Int32
}

func (m *mockPoller) Snapshot() *model.Snapshot { return m.snapshot }
func (m *mockPoller) RequestImmediateRefresh()  { m.refreshC.Add(1) }

func newTestDispatcher(t *testing.T, client *mockClient, p *mockPoller, queueDepth int) (*Dispatcher, context.CancelFunc) {
	t.Helper()
	d := New(client, p, gate.New(), &config.DeviceConfig{QueueDepth: queueDepth})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = d.Start(ctx)
	}()
	return d, cancel
}

func TestPushButton(t *testing.T) {
	client := &mockClient{}
	p := &mockPoller{}
	d, cancel := newTestDispatcher(t, client, p, 4)
	defer cancel()

	var gotButton model.ButtonType
	var gotDuration int
	client.PushButtonFunc = func(ctx context.Context, button model.ButtonType, durationMs int) error {
		gotButton = button
		gotDuration = durationMs
		return nil
	}

	err := d.PushButton(context.Background(), model.ButtonPower, DefaultButtonDurationMs)
	require.NoError(t, err)
	assert.Equal(t, model.ButtonPower, gotButton)
	assert.Equal(t, DefaultButtonDurationMs, gotDuration)
	assert.Equal(t, 1, client.callCount())
	assert.Equal(t, int32(1), p.refreshC.Load())

	stats := d.Stats()
	assert.Equal(t, uint64(1), stats.Succeeded)
	assert.Equal(t, uint64(0), stats.Failed)
}

func TestPushButton_InvalidDuration(t *testing.T) {
	client := &mockClient{}
	d, cancel := newTestDispatcher(t, client, &mockPoller{}, 4)
	defer cancel()

	for _, duration := range []int{0, -50, MaxButtonDurationMs + 1} {
		err := d.PushButton(context.Background(), model.ButtonReset, duration)
		assert.ErrorIs(t, err, model.ErrInvalidArgument, "duration %d", duration)
	}
	assert.Equal(t, 0, client.callCount())
}

func TestPushButton_UnknownButton(t *testing.T) {
	client := &mockClient{}
	d, cancel := newTestDispatcher(t, client, &mockPoller{}, 4)
	defer cancel()

	err := d.PushButton(context.Background(), model.ButtonType("eject"), DefaultButtonDurationMs)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.Equal(t, 0, client.callCount())
}

func TestPasteText_Empty(t *testing.T) {
	client := &mockClient{}
	d, cancel := newTestDispatcher(t, client, &mockPoller{}, 4)
	defer cancel()

	err := d.PasteText(context.Background(), "")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.Equal(t, 0, client.callCount())
}

func TestSetMouseJiggler_UnknownMode(t *testing.T) {
	client := &mockClient{}
	d, cancel := newTestDispatcher(t, client, &mockPoller{}, 4)
	defer cancel()

	err := d.SetMouseJiggler(context.Background(), "wiggle")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.Equal(t, 0, client.callCount())
}

func TestSetToggle_HDMIWithoutCapability(t *testing.T) {
	client := &mockClient{}
	snapshot := model.NewSnapshot() // no HDMIOutput populated
	d, cancel := newTestDispatcher(t, client, &mockPoller{snapshot: snapshot}, 4)
	defer cancel()

	err := d.SetToggle(context.Background(), model.ToggleHDMIOutput, false)
	assert.ErrorIs(t, err, model.ErrUnsupportedOperation)
	assert.Equal(t, 0, client.callCount())
}

func TestSetToggle_HDMIWithCapability(t *testing.T) {
	client := &mockClient{}
	snapshot := model.NewSnapshot()
	enabled := true
	snapshot.HDMIOutput = &enabled
	d, cancel := newTestDispatcher(t, client, &mockPoller{snapshot: snapshot}, 4)
	defer cancel()

	err := d.SetToggle(context.Background(), model.ToggleHDMIOutput, false)
	require.NoError(t, err)
	assert.Equal(t, 1, client.callCount())
}

func TestSetToggle_NeverOverlaps(t *testing.T) {
	client := &mockClient{}
	var inFlight atomic.Int32
	var overlapped atomic.Bool
	client.SetToggleFunc = func(ctx context.Context, target model.ToggleTarget, enabled bool) error {
		if inFlight.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}
	d, cancel := newTestDispatcher(t, client, &mockPoller{}, 16)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(enabled bool) {
			defer wg.Done()
			_ = d.SetToggle(context.Background(), model.ToggleSSH, enabled)
		}(i%2 == 0)
	}
	wg.Wait()

	assert.False(t, overlapped.Load(), "device calls must be serialised")
	assert.Equal(t, 8, client.callCount())
}

func TestSubmit_QueueFull(t *testing.T) {
	client := &mockClient{}
	release := make(chan struct{})
	client.RebootFunc = func(ctx context.Context) error {
		<-release
		return nil
	}
	// depth 1 and a worker stuck on the first command.
	d, cancel := newTestDispatcher(t, client, &mockPoller{}, 1)
	defer cancel()

	bg := context.Background()
	firstDone := make(chan error, 1)
	go func() { firstDone <- d.Reboot(bg) }()

	// Wait for the worker to pick up the first command, then fill the
	// single queue slot with a second one.
	require.Eventually(t, func() bool { return client.callCount() == 1 }, time.Second, 5*time.Millisecond)
	secondDone := make(chan error, 1)
	go func() { secondDone <- d.Reboot(bg) }()
	require.Eventually(t, func() bool { return d.Stats().QueueDepth == 1 }, time.Second, 5*time.Millisecond)

	err := d.Reboot(bg)
	assert.ErrorIs(t, err, model.ErrBusy)

	close(release)
	assert.NoError(t, <-firstDone)
	assert.NoError(t, <-secondDone)
}

func TestWakeOnLan(t *testing.T) {
	client := &mockClient{}
	p := &mockPoller{}
	d, cancel := newTestDispatcher(t, client, p, 4)
	defer cancel()

	err := d.WakeOnLan(context.Background(), "aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.Equal(t, 1, client.callCount())
	// Sending a magic packet changes no device state.
	assert.Equal(t, int32(0), p.refreshC.Load())
}

func TestWakeOnLan_MalformedMAC(t *testing.T) {
	client := &mockClient{}
	d, cancel := newTestDispatcher(t, client, &mockPoller{}, 4)
	defer cancel()

	err := d.WakeOnLan(context.Background(), "not-a-mac")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
	assert.Equal(t, 0, client.callCount())
}

func TestFailedCommand_NoRefresh(t *testing.T) {
	client := &mockClient{}
	client.RebootFunc = func(ctx context.Context) error {
		return errors.New("device refused")
	}
	p := &mockPoller{}
	d, cancel := newTestDispatcher(t, client, p, 4)
	defer cancel()

	err := d.Reboot(context.Background())
	assert.Error(t, err)
	assert.Equal(t, int32(0), p.refreshC.Load())

	stats := d.Stats()
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(0), stats.Succeeded)
}
