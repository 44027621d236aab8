package nanokvm

import (
	"context"
	"fmt"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
)

// PushButton presses a front panel button for durationMs milliseconds.
// Validation happens in the dispatcher; this is the raw device call.
func (c *Client) PushButton(ctx context.Context, button model.ButtonType, durationMs int) error {
	return c.postJSON(ctx, "vm/gpio", gpioRequest{
		Type:     button.String(),
		Duration: durationMs,
	}, nil)
}

// PasteText forwards literal text to the keystroke simulator. Embedded
// newlines are sent as-is.
func (c *Client) PasteText(ctx context.Context, text string) error {
	return c.postJSON(ctx, "hid/paste", pasteRequest{Content: text}, nil)
}

func (c *Client) SetMouseJigglerMode(ctx context.Context, mode model.JigglerMode) error {
	req := jigglerRequest{Enabled: mode != model.JigglerDisabled}
	if req.Enabled {
		req.Mode = mode.String()
	}
	return c.postJSON(ctx, "hid/jiggler", req, nil)
}

func (c *Client) SetSSH(ctx context.Context, enabled bool) error {
	return c.postJSON(ctx, "network/ssh", enableRequest{Enable: enabled}, nil)
}

func (c *Client) SetMDNS(ctx context.Context, enabled bool) error {
	return c.postJSON(ctx, "network/mdns", enableRequest{Enable: enabled}, nil)
}

func (c *Client) SetVirtualNetwork(ctx context.Context, enabled bool) error {
	return c.postJSON(ctx, "vm/virtual-device", virtualDeviceRequest{Device: "network", Enable: enabled}, nil)
}

func (c *Client) SetVirtualDisk(ctx context.Context, enabled bool) error {
	return c.postJSON(ctx, "vm/virtual-device", virtualDeviceRequest{Device: "disk", Enable: enabled}, nil)
}

func (c *Client) SetHDMIOutput(ctx context.Context, enabled bool) error {
	return c.postJSON(ctx, "vm/hdmi", enableRequest{Enable: enabled}, nil)
}

func (c *Client) SetToggle(ctx context.Context, target model.ToggleTarget, enabled bool) error {
	switch target {
	case model.ToggleSSH:
		return c.SetSSH(ctx, enabled)
	case model.ToggleMDNS:
		return c.SetMDNS(ctx, enabled)
	case model.ToggleVirtualNetwork:
		return c.SetVirtualNetwork(ctx, enabled)
	case model.ToggleVirtualDisk:
		return c.SetVirtualDisk(ctx, enabled)
	case model.ToggleHDMIOutput:
		return c.SetHDMIOutput(ctx, enabled)
	}
	return fmt.Errorf("%w: unknown toggle %q", model.ErrInvalidArgument, target)
}

func (c *Client) Reboot(ctx context.Context) error {
	return c.postJSON(ctx, "vm/system/reboot", nil, nil)
}

func (c *Client) ResetHDMI(ctx context.Context) error {
	return c.postJSON(ctx, "vm/hdmi/reset", nil, nil)
}

func (c *Client) ResetHID(ctx context.Context) error {
	return c.postJSON(ctx, "hid/reset", nil, nil)
}

func (c *Client) UpdateApplication(ctx context.Context) error {
	return c.postJSON(ctx, "application/update", nil, nil)
}

// WakeOnLan sends a magic packet from the device. An empty mac uses
// the device's stored target.
func (c *Client) WakeOnLan(ctx context.Context, mac string) error {
	return c.postJSON(ctx, "network/wol", wolRequest{MAC: mac}, nil)
}
