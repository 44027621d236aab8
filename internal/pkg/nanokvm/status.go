package nanokvm

import (
	"context"
	"strings"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
)

func (c *Client) GetLEDs(ctx context.Context) (LEDState, error) {
	var out LEDState
	if err := c.getJSON(ctx, "vm/gpio", &out); err != nil {
		return LEDState{}, err
	}
	return out, nil
}

func (c *Client) GetVirtualDevices(ctx context.Context) (VirtualDeviceState, error) {
	var out VirtualDeviceState
	if err := c.getJSON(ctx, "vm/virtual-device", &out); err != nil {
		return VirtualDeviceState{}, err
	}
	return out, nil
}

// GetNetworkServices queries ssh and mdns state. Both must succeed for
// the group to count as fetched.
func (c *Client) GetNetworkServices(ctx context.Context) (NetworkServiceState, error) {
	var ssh, mdns serviceState
	if err := c.getJSON(ctx, "network/ssh", &ssh); err != nil {
		return NetworkServiceState{}, err
	}
	if err := c.getJSON(ctx, "network/mdns", &mdns); err != nil {
		return NetworkServiceState{}, err
	}
	return NetworkServiceState{SSHEnabled: ssh.Enabled, MDNSEnabled: mdns.Enabled}, nil
}

func (c *Client) GetOLED(ctx context.Context) (OLEDState, error) {
	var out OLEDState
	if err := c.getJSON(ctx, "vm/oled", &out); err != nil {
		return OLEDState{}, err
	}
	return out, nil
}

func (c *Client) GetWiFi(ctx context.Context) (WiFiState, error) {
	var out WiFiState
	if err := c.getJSON(ctx, "network/wifi", &out); err != nil {
		return WiFiState{}, err
	}
	return out, nil
}

func (c *Client) GetHIDMode(ctx context.Context) (model.HIDMode, error) {
	var out hidModeResponse
	if err := c.getJSON(ctx, "hid/mode", &out); err != nil {
		return model.HIDModeUnknown, err
	}
	switch out.Mode {
	case "normal":
		return model.HIDModeNormal, nil
	case "hid-only":
		return model.HIDModeOnly, nil
	default:
		return model.HIDModeUnknown, nil
	}
}

func (c *Client) GetInfo(ctx context.Context) (Info, error) {
	var out Info
	if err := c.getJSON(ctx, "vm/info", &out); err != nil {
		return Info{}, err
	}
	out.MDNS = NormalizeMDNS(out.MDNS)
	return out, nil
}

func (c *Client) GetHardwareVersion(ctx context.Context) (model.HardwareVersion, error) {
	var out hardwareResponse
	if err := c.getJSON(ctx, "vm/hardware", &out); err != nil {
		return "", err
	}
	switch {
	case strings.EqualFold(out.Version, string(model.HardwareAlpha)):
		return model.HardwareAlpha, nil
	case strings.EqualFold(out.Version, string(model.HardwareBeta)):
		return model.HardwareBeta, nil
	case strings.EqualFold(out.Version, string(model.HardwarePCIE)):
		return model.HardwarePCIE, nil
	}
	return model.HardwareVersion(out.Version), nil
}

// GetMountedImage returns the image path (empty when nothing mounted)
// and whether the virtual drive presents as CD-ROM.
func (c *Client) GetMountedImage(ctx context.Context) (string, bool, error) {
	var mounted mountedImageResponse
	if err := c.getJSON(ctx, "storage/image/mounted", &mounted); err != nil {
		return "", false, err
	}
	if mounted.File == "" {
		return "", false, nil
	}
	var cdrom cdromResponse
	if err := c.getJSON(ctx, "storage/cdrom", &cdrom); err != nil {
		return "", false, err
	}
	return mounted.File, cdrom.CDROM != 0, nil
}

func (c *Client) GetMouseJiggler(ctx context.Context) (model.JigglerMode, error) {
	var out JigglerState
	if err := c.getJSON(ctx, "hid/jiggler", &out); err != nil {
		return model.JigglerDisabled, err
	}
	if !out.Enabled {
		return model.JigglerDisabled, nil
	}
	if mode, ok := model.ParseJigglerMode(out.Mode); ok {
		return mode, nil
	}
	return model.JigglerRelative, nil
}

func (c *Client) GetHDMIOutput(ctx context.Context) (bool, error) {
	var out hdmiStateResponse
	if err := c.getJSON(ctx, "vm/hdmi", &out); err != nil {
		return false, err
	}
	return out.Enabled, nil
}

// GetLatestApplicationVersion asks the device for the newest published
// application version, used by the scheduled update check.
func (c *Client) GetLatestApplicationVersion(ctx context.Context) (string, error) {
	var out latestVersionResponse
	if err := c.getJSON(ctx, "application/version/latest", &out); err != nil {
		return "", err
	}
	return out.Latest, nil
}
