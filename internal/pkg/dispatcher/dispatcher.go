// Package dispatcher executes user and automation triggered device
// commands. Commands are validated locally, queued FIFO with a bounded
// depth, and executed one at a time behind the shared device gate. A
// successful mutating command schedules one immediate poll so entities
// converge quickly.
package dispatcher

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/config"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/gate"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
)

const (
	// DefaultButtonDurationMs is the press duration used when a caller
	// does not supply one. Part of the service-call contract.
	DefaultButtonDurationMs = 100
	MaxButtonDurationMs     = 5000

	commandTimeout = 10 * time.Second
)

type deviceClient interface {
	PushButton(ctx context.Context, button model.ButtonType, durationMs int) error
	PasteText(ctx context.Context, text string) error
	SetMouseJigglerMode(ctx context.Context, mode model.JigglerMode) error
	SetToggle(ctx context.Context, target model.ToggleTarget, enabled bool) error
	Reboot(ctx context.Context) error
	ResetHDMI(ctx context.Context) error
	ResetHID(ctx context.Context) error
	UpdateApplication(ctx context.Context) error
	WakeOnLan(ctx context.Context, mac string) error
}

type statePoller interface {
	Snapshot() *model.Snapshot
	RequestImmediateRefresh()
}

type job struct {
	kind    string
	refresh bool
	run     func(ctx context.Context) error
	done    chan error
}

// Stats is a read-only view for the metrics collector.
type Stats struct {
	Succeeded  uint64
	Failed     uint64
	QueueDepth int
}

type Dispatcher struct {
	client deviceClient
	poller statePoller
	gate   *gate.Gate
	logger *zap.Logger
	jobs   chan job

	mu        sync.Mutex
	succeeded uint64
	failed    uint64
}

func New(client deviceClient, poller statePoller, g *gate.Gate, cfg *config.DeviceConfig) *Dispatcher {
	return &Dispatcher{
		client: client,
		poller: poller,
		gate:   g,
		logger: zap.L(),
		jobs:   make(chan job, cfg.QueueDepth),
	}
}

// Start runs the single command worker until the context ends. Queued
// commands execute in arrival order; an in-flight device call is never
// aborted, only the wait for new work is.
func (d *Dispatcher) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-d.jobs:
			d.execute(j)
		}
	}
}

func (d *Dispatcher) execute(j job) {
	d.gate.LockCommand()
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	err := j.run(ctx)
	cancel()
	d.gate.Unlock()

	d.mu.Lock()
	if err != nil {
		d.failed++
	} else {
		d.succeeded++
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Error("command failed", zap.String("command", j.kind), zap.Error(err))
	} else {
		d.logger.Info("command executed", zap.String("command", j.kind))
		if j.refresh {
			d.poller.RequestImmediateRefresh()
		}
	}
	j.done <- err
}

// submit queues the command and waits for its result. A full queue
// fails fast with ErrBusy. Caller cancellation stops the wait, not the
// command.
func (d *Dispatcher) submit(ctx context.Context, kind string, refresh bool, run func(ctx context.Context) error) error {
	j := job{kind: kind, refresh: refresh, run: run, done: make(chan error, 1)}
	select {
	case d.jobs <- j:
	default:
		return fmt.Errorf("%w: command %q rejected", model.ErrBusy, kind)
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Succeeded:  d.succeeded,
		Failed:     d.failed,
		QueueDepth: len(d.jobs),
	}
}

// PushButton presses the power or reset button. Duration must be in
// (0, MaxButtonDurationMs].
func (d *Dispatcher) PushButton(ctx context.Context, button model.ButtonType, durationMs int) error {
	if _, ok := model.ParseButtonType(button.String()); !ok {
		return fmt.Errorf("%w: unknown button %q", model.ErrInvalidArgument, button)
	}
	if durationMs <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", model.ErrInvalidArgument, durationMs)
	}
	if durationMs > MaxButtonDurationMs {
		return fmt.Errorf("%w: duration %dms exceeds %dms", model.ErrInvalidArgument, durationMs, MaxButtonDurationMs)
	}
	return d.submit(ctx, "push_button_"+button.String(), true, func(ctx context.Context) error {
		return d.client.PushButton(ctx, button, durationMs)
	})
}

// PasteText sends literal text through the keystroke simulator. The
// text is never interpreted; embedded newlines pass through.
func (d *Dispatcher) PasteText(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("%w: paste text is empty", model.ErrInvalidArgument)
	}
	return d.submit(ctx, "paste_text", true, func(ctx context.Context) error {
		return d.client.PasteText(ctx, text)
	})
}

func (d *Dispatcher) SetMouseJiggler(ctx context.Context, mode string) error {
	parsed, ok := model.ParseJigglerMode(mode)
	if !ok {
		return fmt.Errorf("%w: unknown jiggler mode %q", model.ErrInvalidArgument, mode)
	}
	return d.submit(ctx, "set_mouse_jiggler", true, func(ctx context.Context) error {
		return d.client.SetMouseJigglerMode(ctx, parsed)
	})
}

// SetToggle flips one of the device toggles. hdmi_output requires the
// capability to be present on the current snapshot.
func (d *Dispatcher) SetToggle(ctx context.Context, target model.ToggleTarget, desired bool) error {
	if _, ok := model.ParseToggleTarget(target.String()); !ok {
		return fmt.Errorf("%w: unknown toggle %q", model.ErrInvalidArgument, target)
	}
	if target == model.ToggleHDMIOutput {
		snap := d.poller.Snapshot()
		if snap == nil || snap.HDMIOutput == nil {
			return fmt.Errorf("%w: hdmi output control not present on this hardware", model.ErrUnsupportedOperation)
		}
	}
	return d.submit(ctx, "set_toggle_"+target.String(), true, func(ctx context.Context) error {
		return d.client.SetToggle(ctx, target, desired)
	})
}

func (d *Dispatcher) Reboot(ctx context.Context) error {
	return d.submit(ctx, "reboot", true, func(ctx context.Context) error {
		return d.client.Reboot(ctx)
	})
}

func (d *Dispatcher) ResetHDMI(ctx context.Context) error {
	return d.submit(ctx, "reset_hdmi", true, func(ctx context.Context) error {
		return d.client.ResetHDMI(ctx)
	})
}

func (d *Dispatcher) ResetHID(ctx context.Context) error {
	return d.submit(ctx, "reset_hid", true, func(ctx context.Context) error {
		return d.client.ResetHID(ctx)
	})
}

func (d *Dispatcher) UpdateApplication(ctx context.Context) error {
	return d.submit(ctx, "update_application", true, func(ctx context.Context) error {
		return d.client.UpdateApplication(ctx)
	})
}

// WakeOnLan sends a magic packet. mac may be empty to use the target
// stored on the device. It changes no KVM state, so no refresh runs.
func (d *Dispatcher) WakeOnLan(ctx context.Context, mac string) error {
	if mac != "" {
		if _, err := net.ParseMAC(strings.TrimSpace(mac)); err != nil {
			return fmt.Errorf("%w: malformed mac %q", model.ErrInvalidArgument, mac)
		}
	}
	return d.submit(ctx, "wake_on_lan", false, func(ctx context.Context) error {
		return d.client.WakeOnLan(ctx, mac)
	})
}
