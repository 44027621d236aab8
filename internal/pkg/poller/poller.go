// Package poller maintains the current device snapshot. One goroutine
// polls every status group on a fixed interval, retains previous values
// for groups whose query failed, and publishes each new snapshot to
// subscribers in order.
package poller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/config"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/gate"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/nanokvm"
)

const groupTimeout = 10 * time.Second

type deviceClient interface {
	GetLEDs(ctx context.Context) (nanokvm.LEDState, error)
	GetVirtualDevices(ctx context.Context) (nanokvm.VirtualDeviceState, error)
	GetNetworkServices(ctx context.Context) (nanokvm.NetworkServiceState, error)
	GetOLED(ctx context.Context) (nanokvm.OLEDState, error)
	GetWiFi(ctx context.Context) (nanokvm.WiFiState, error)
	GetHIDMode(ctx context.Context) (model.HIDMode, error)
	GetInfo(ctx context.Context) (nanokvm.Info, error)
	GetHardwareVersion(ctx context.Context) (model.HardwareVersion, error)
	GetMountedImage(ctx context.Context) (string, bool, error)
	GetMouseJiggler(ctx context.Context) (model.JigglerMode, error)
	GetHDMIOutput(ctx context.Context) (bool, error)
}

// Stats is a read-only view for the metrics collector.
type Stats struct {
	LastSuccess  time.Time
	PollSuccess  uint64
	PollPartial  uint64
	PollFailure  uint64
	Available    bool
	StaleGroups  []model.StatusGroup
}

type Poller struct {
	client           deviceClient
	gate             *gate.Gate
	interval         time.Duration
	failureThreshold int
	logger           *zap.Logger

	mu                  sync.RWMutex
	snapshot            *model.Snapshot
	subscribers         []func(model.Update)
	consecutiveFailures int
	available           bool
	lastSuccess         time.Time
	pollSuccess         uint64
	pollPartial         uint64
	pollFailure         uint64

	refreshCh chan struct{}
	stopOnce  sync.Once
	stopCh    chan struct{}
}

func New(client deviceClient, g *gate.Gate, cfg *config.DeviceConfig) *Poller {
	return &Poller{
		client:           client,
		gate:             g,
		interval:         cfg.PollInterval,
		failureThreshold: cfg.FailureThreshold,
		logger:           zap.L(),
		refreshCh:        make(chan struct{}, 1),
		stopCh:           make(chan struct{}),
	}
}

// Start polls immediately, then on every tick until the context ends or
// Stop is called. A tick is skipped while a command is waiting for the
// device slot; the post-command refresh covers the missed cycle.
func (p *Poller) Start(ctx context.Context) error {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if p.gate.CommandsWaiting() {
				p.logger.Debug("skipping poll tick, command pending")
				continue
			}
			p.poll(ctx)
		case <-p.refreshCh:
			p.poll(ctx)
		}
	}
}

// Stop ends the poll loop. Idempotent; an in-flight poll completes.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
}

// Snapshot returns the latest published snapshot without blocking. Nil
// until the first poll has succeeded.
func (p *Poller) Snapshot() *model.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Subscribe registers a callback invoked once per published update.
// Updates arrive in publication order.
func (p *Poller) Subscribe(fn func(model.Update)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

// RequestImmediateRefresh schedules an out-of-cycle poll. Concurrent
// requests collapse into a single in-flight poll.
func (p *Poller) RequestImmediateRefresh() {
	select {
	case p.refreshCh <- struct{}{}:
	default:
	}
}

func (p *Poller) Available() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.available
}

func (p *Poller) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	stats := Stats{
		LastSuccess: p.lastSuccess,
		PollSuccess: p.pollSuccess,
		PollPartial: p.pollPartial,
		PollFailure: p.pollFailure,
		Available:   p.available,
	}
	if p.snapshot != nil {
		for group, state := range p.snapshot.Groups {
			if state.Stale {
				stats.StaleGroups = append(stats.StaleGroups, group)
			}
		}
	}
	return stats
}

type groupFetch struct {
	group model.StatusGroup
	fetch func(ctx context.Context, next *model.Snapshot) error
}

func (p *Poller) groupFetches() []groupFetch {
	return []groupFetch{
		{model.GroupLEDs, p.fetchLEDs},
		{model.GroupVirtualDevices, p.fetchVirtualDevices},
		{model.GroupNetworkServices, p.fetchNetworkServices},
		{model.GroupOLED, p.fetchOLED},
		{model.GroupWiFi, p.fetchWiFi},
		{model.GroupHID, p.fetchHID},
		{model.GroupStorage, p.fetchStorage},
		{model.GroupJiggler, p.fetchJiggler},
	}
}

// poll runs one full round of status queries. Each group fails
// independently; a group failure keeps the previous values marked
// stale. Only an all-groups failure leaves the snapshot unpublished.
func (p *Poller) poll(ctx context.Context) {
	p.gate.Lock()
	defer p.gate.Unlock()

	prev := p.Snapshot()
	var next *model.Snapshot
	if prev == nil {
		next = model.NewSnapshot()
	} else {
		next = prev.Clone()
	}
	now := time.Now()
	next.FetchedAt = now
	next.Partial = false

	succeeded := 0
	runGroup := func(gf groupFetch) {
		groupCtx, cancel := context.WithTimeout(ctx, groupTimeout)
		err := gf.fetch(groupCtx, next)
		cancel()
		if err != nil {
			next.Partial = true
			state := next.Groups[gf.group]
			state.Stale = true
			next.Groups[gf.group] = state
			p.logger.Warn("status group query failed",
				zap.String("group", gf.group.String()),
				zap.Error(err))
			return
		}
		succeeded++
		next.Groups[gf.group] = model.GroupState{FetchedAt: now}
	}

	// Versions runs first so the capability set is settled before the
	// conditional hdmi group is considered.
	runGroup(groupFetch{model.GroupVersions, p.fetchVersions})
	for _, gf := range p.groupFetches() {
		runGroup(gf)
	}
	if next.HasCapability(model.CapabilityHDMIControl) {
		runGroup(groupFetch{model.GroupHDMI, p.fetchHDMI})
	}

	if succeeded == 0 {
		p.recordFullFailure(prev)
		return
	}
	p.publish(next)
}

func (p *Poller) recordFullFailure(prev *model.Snapshot) {
	p.mu.Lock()
	p.pollFailure++
	p.consecutiveFailures++
	// Crossing the threshold notifies exactly once, even when the
	// device has never been seen available.
	becameUnavailable := p.consecutiveFailures == p.failureThreshold
	if p.consecutiveFailures >= p.failureThreshold {
		p.available = false
	}
	subscribers := p.subscribers
	available := p.available
	p.mu.Unlock()

	p.logger.Warn("poll failed entirely",
		zap.Int("consecutive_failures", p.consecutiveFailures),
		zap.Bool("available", available))

	if becameUnavailable {
		for _, fn := range subscribers {
			fn(model.Update{Snapshot: prev, Available: false})
		}
	}
}

func (p *Poller) publish(next *model.Snapshot) {
	p.mu.Lock()
	p.snapshot = next
	p.consecutiveFailures = 0
	p.available = true
	p.lastSuccess = next.FetchedAt
	if next.Partial {
		p.pollPartial++
	} else {
		p.pollSuccess++
	}
	subscribers := p.subscribers
	p.mu.Unlock()

	for _, fn := range subscribers {
		fn(model.Update{Snapshot: next, Available: true, Partial: next.Partial})
	}
}

func (p *Poller) fetchVersions(ctx context.Context, next *model.Snapshot) error {
	hw, err := p.client.GetHardwareVersion(ctx)
	if err != nil {
		return err
	}
	info, err := p.client.GetInfo(ctx)
	if err != nil {
		return err
	}
	next.HardwareVersion = hw
	next.ApplicationVersion = info.Application
	for capability := range model.CapabilitiesFor(hw) {
		next.Capabilities[capability] = struct{}{}
	}
	return nil
}

func (p *Poller) fetchLEDs(ctx context.Context, next *model.Snapshot) error {
	leds, err := p.client.GetLEDs(ctx)
	if err != nil {
		return err
	}
	next.PowerLED = leds.Power
	next.HDDLED = leds.HDD
	return nil
}

func (p *Poller) fetchVirtualDevices(ctx context.Context, next *model.Snapshot) error {
	vd, err := p.client.GetVirtualDevices(ctx)
	if err != nil {
		return err
	}
	next.VirtualNetworkEnabled = vd.Network
	next.VirtualDiskEnabled = vd.Disk
	return nil
}

func (p *Poller) fetchNetworkServices(ctx context.Context, next *model.Snapshot) error {
	ns, err := p.client.GetNetworkServices(ctx)
	if err != nil {
		return err
	}
	next.SSHEnabled = ns.SSHEnabled
	next.MDNSEnabled = ns.MDNSEnabled
	return nil
}

func (p *Poller) fetchOLED(ctx context.Context, next *model.Snapshot) error {
	oled, err := p.client.GetOLED(ctx)
	if err != nil {
		return err
	}
	next.OLEDPresent = oled.Exist
	next.OLEDSleepSeconds = oled.Sleep
	if oled.Exist {
		next.Capabilities[model.CapabilityOLED] = struct{}{}
	}
	return nil
}

func (p *Poller) fetchWiFi(ctx context.Context, next *model.Snapshot) error {
	wifi, err := p.client.GetWiFi(ctx)
	if err != nil {
		return err
	}
	next.WiFiSupported = wifi.Supported
	next.WiFiConnected = wifi.Connected
	if wifi.Supported {
		next.Capabilities[model.CapabilityWiFi] = struct{}{}
	}
	return nil
}

func (p *Poller) fetchHID(ctx context.Context, next *model.Snapshot) error {
	mode, err := p.client.GetHIDMode(ctx)
	if err != nil {
		return err
	}
	next.HIDMode = mode
	return nil
}

func (p *Poller) fetchStorage(ctx context.Context, next *model.Snapshot) error {
	image, cdrom, err := p.client.GetMountedImage(ctx)
	if err != nil {
		return err
	}
	next.MountedImage = image
	next.CDROMMode = cdrom
	return nil
}

func (p *Poller) fetchJiggler(ctx context.Context, next *model.Snapshot) error {
	mode, err := p.client.GetMouseJiggler(ctx)
	if err != nil {
		return err
	}
	next.MouseJiggler = mode
	return nil
}

func (p *Poller) fetchHDMI(ctx context.Context, next *model.Snapshot) error {
	enabled, err := p.client.GetHDMIOutput(ctx)
	if err != nil {
		return err
	}
	next.HDMIOutput = &enabled
	return nil
}
