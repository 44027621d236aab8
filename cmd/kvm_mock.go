package cmd

import (
	"context"
	"errors"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/nanokvm"
)

// MockKVMService is a mock implementation of the KVMService interface.
type MockKVMService struct {
	AuthenticateFunc                func(ctx context.Context) error
	GetLEDsFunc                     func(ctx context.Context) (nanokvm.LEDState, error)
	GetVirtualDevicesFunc           func(ctx context.Context) (nanokvm.VirtualDeviceState, error)
	GetNetworkServicesFunc          func(ctx context.Context) (nanokvm.NetworkServiceState, error)
	GetOLEDFunc                     func(ctx context.Context) (nanokvm.OLEDState, error)
	GetWiFiFunc                     func(ctx context.Context) (nanokvm.WiFiState, error)
	GetHIDModeFunc                  func(ctx context.Context) (model.HIDMode, error)
	GetInfoFunc                     func(ctx context.Context) (nanokvm.Info, error)
	GetHardwareVersionFunc          func(ctx context.Context) (model.HardwareVersion, error)
	GetMountedImageFunc             func(ctx context.Context) (string, bool, error)
	GetMouseJigglerFunc             func(ctx context.Context) (model.JigglerMode, error)
	GetHDMIOutputFunc               func(ctx context.Context) (bool, error)
	GetLatestApplicationVersionFunc func(ctx context.Context) (string, error)

	PushButtonFunc          func(ctx context.Context, button model.ButtonType, durationMs int) error
	PasteTextFunc           func(ctx context.Context, text string) error
	SetMouseJigglerModeFunc func(ctx context.Context, mode model.JigglerMode) error
	SetToggleFunc           func(ctx context.Context, target model.ToggleTarget, enabled bool) error
	RebootFunc              func(ctx context.Context) error
	ResetHDMIFunc           func(ctx context.Context) error
	ResetHIDFunc            func(ctx context.Context) error
	UpdateApplicationFunc   func(ctx context.Context) error
	WakeOnLanFunc           func(ctx context.Context, mac string) error
}

func (m *MockKVMService) Authenticate(ctx context.Context) error {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx)
	}
	return nil
}

func (m *MockKVMService) GetLEDs(ctx context.Context) (nanokvm.LEDState, error) {
	if m.GetLEDsFunc != nil {
		return m.GetLEDsFunc(ctx)
	}
	return nanokvm.LEDState{}, nil
}

func (m *MockKVMService) GetVirtualDevices(ctx context.Context) (nanokvm.VirtualDeviceState, error) {
	if m.GetVirtualDevicesFunc != nil {
		return m.GetVirtualDevicesFunc(ctx)
	}
	return nanokvm.VirtualDeviceState{}, nil
}

func (m *MockKVMService) GetNetworkServices(ctx context.Context) (nanokvm.NetworkServiceState, error) {
	if m.GetNetworkServicesFunc != nil {
		return m.GetNetworkServicesFunc(ctx)
	}
	return nanokvm.NetworkServiceState{}, nil
}

func (m *MockKVMService) GetOLED(ctx context.Context) (nanokvm.OLEDState, error) {
	if m.GetOLEDFunc != nil {
		return m.GetOLEDFunc(ctx)
	}
	return nanokvm.OLEDState{}, nil
}

func (m *MockKVMService) GetWiFi(ctx context.Context) (nanokvm.WiFiState, error) {
	if m.GetWiFiFunc != nil {
		return m.GetWiFiFunc(ctx)
	}
	return nanokvm.WiFiState{}, nil
}

func (m *MockKVMService) GetHIDMode(ctx context.Context) (model.HIDMode, error) {
	if m.GetHIDModeFunc != nil {
		return m.GetHIDModeFunc(ctx)
	}
	return model.HIDModeNormal, nil
}

func (m *MockKVMService) GetInfo(ctx context.Context) (nanokvm.Info, error) {
	if m.GetInfoFunc != nil {
		return m.GetInfoFunc(ctx)
	}
	return nanokvm.Info{MDNS: "nanokvm.local", Application: "1.0.0", Image: "1.0.0", DeviceKey: "test"}, nil
}

func (m *MockKVMService) GetHardwareVersion(ctx context.Context) (model.HardwareVersion, error) {
	if m.GetHardwareVersionFunc != nil {
		return m.GetHardwareVersionFunc(ctx)
	}
	return model.HardwareBeta, nil
}

func (m *MockKVMService) GetMountedImage(ctx context.Context) (string, bool, error) {
	if m.GetMountedImageFunc != nil {
		return m.GetMountedImageFunc(ctx)
	}
	return "", false, nil
}

func (m *MockKVMService) GetMouseJiggler(ctx context.Context) (model.JigglerMode, error) {
	if m.GetMouseJigglerFunc != nil {
		return m.GetMouseJigglerFunc(ctx)
	}
	return model.JigglerDisabled, nil
}

func (m *MockKVMService) GetHDMIOutput(ctx context.Context) (bool, error) {
	if m.GetHDMIOutputFunc != nil {
		return m.GetHDMIOutputFunc(ctx)
	}
	return false, errors.New("mocked GetHDMIOutput not implemented")
}

func (m *MockKVMService) GetLatestApplicationVersion(ctx context.Context) (string, error) {
	if m.GetLatestApplicationVersionFunc != nil {
		return m.GetLatestApplicationVersionFunc(ctx)
	}
	return "", nil
}

func (m *MockKVMService) PushButton(ctx context.Context, button model.ButtonType, durationMs int) error {
	if m.PushButtonFunc != nil {
		return m.PushButtonFunc(ctx, button, durationMs)
	}
	return errors.New("mocked PushButton not implemented")
}

func (m *MockKVMService) PasteText(ctx context.Context, text string) error {
	if m.PasteTextFunc != nil {
		return m.PasteTextFunc(ctx, text)
	}
	return errors.New("mocked PasteText not implemented")
}

func (m *MockKVMService) SetMouseJigglerMode(ctx context.Context, mode model.JigglerMode) error {
	if m.SetMouseJigglerModeFunc != nil {
		return m.SetMouseJigglerModeFunc(ctx, mode)
	}
	return errors.New("mocked SetMouseJigglerMode not implemented")
}

func (m *MockKVMService) SetToggle(ctx context.Context, target model.ToggleTarget, enabled bool) error {
	if m.SetToggleFunc != nil {
		return m.SetToggleFunc(ctx, target, enabled)
	}
	return errors.New("mocked SetToggle not implemented")
}

func (m *MockKVMService) Reboot(ctx context.Context) error {
	if m.RebootFunc != nil {
		return m.RebootFunc(ctx)
	}
	return errors.New("mocked Reboot not implemented")
}

func (m *MockKVMService) ResetHDMI(ctx context.Context) error {
	if m.ResetHDMIFunc != nil {
		return m.ResetHDMIFunc(ctx)
	}
	return errors.New("mocked ResetHDMI not implemented")
}

func (m *MockKVMService) ResetHID(ctx context.Context) error {
	if m.ResetHIDFunc != nil {
		return m.ResetHIDFunc(ctx)
	}
	return errors.New("mocked ResetHID not implemented")
}

func (m *MockKVMService) UpdateApplication(ctx context.Context) error {
	if m.UpdateApplicationFunc != nil {
		return m.UpdateApplicationFunc(ctx)
	}
	return errors.New("mocked UpdateApplication not implemented")
}

func (m *MockKVMService) WakeOnLan(ctx context.Context, mac string) error {
	if m.WakeOnLanFunc != nil {
		return m.WakeOnLanFunc(ctx, mac)
	}
	return errors.New("mocked WakeOnLan not implemented")
}

var _ KVMService = (*MockKVMService)(nil)
