package cmd

import (
	"context"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/nanokvm"
)

// KVMService is the full device client surface cmd.run wires into the
// poller and dispatcher.
type KVMService interface {
	Authenticate(ctx context.Context) error

	// Status groups consumed by the poller.
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
	GetLatestApplicationVersion(ctx context.Context) (string, error)

	// Commands consumed by the dispatcher.
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
