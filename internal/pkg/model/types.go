package model

// StatusGroup identifies one independently queried slice of device state.
type StatusGroup string

func (g StatusGroup) String() string {
	return string(g)
}

const (
	GroupLEDs            StatusGroup = "leds"
	GroupVirtualDevices  StatusGroup = "virtual_devices"
	GroupNetworkServices StatusGroup = "network_services"
	GroupOLED            StatusGroup = "oled"
	GroupWiFi            StatusGroup = "wifi"
	GroupHID             StatusGroup = "hid"
	GroupVersions        StatusGroup = "versions"
	GroupStorage         StatusGroup = "storage"
	GroupJiggler         StatusGroup = "jiggler"
	GroupHDMI            StatusGroup = "hdmi"
)

// BaseGroups are polled on every hardware variant. GroupHDMI is added
// only when the device reports HDMI control capability.
var BaseGroups = []StatusGroup{
	GroupLEDs,
	GroupVirtualDevices,
	GroupNetworkServices,
	GroupOLED,
	GroupWiFi,
	GroupHID,
	GroupVersions,
	GroupStorage,
	GroupJiggler,
}

type ButtonType string

func (b ButtonType) String() string {
	return string(b)
}

const (
	ButtonPower ButtonType = "power"
	ButtonReset ButtonType = "reset"
)

// ParseButtonType maps a user supplied button name onto a ButtonType.
func ParseButtonType(s string) (ButtonType, bool) {
	switch ButtonType(s) {
	case ButtonPower, ButtonReset:
		return ButtonType(s), true
	}
	return "", false
}

type ToggleTarget string

func (t ToggleTarget) String() string {
	return string(t)
}

const (
	ToggleSSH            ToggleTarget = "ssh"
	ToggleMDNS           ToggleTarget = "mdns"
	ToggleVirtualNetwork ToggleTarget = "virtual_network"
	ToggleVirtualDisk    ToggleTarget = "virtual_disk"
	ToggleHDMIOutput     ToggleTarget = "hdmi_output"
)

func ParseToggleTarget(s string) (ToggleTarget, bool) {
	switch ToggleTarget(s) {
	case ToggleSSH, ToggleMDNS, ToggleVirtualNetwork, ToggleVirtualDisk, ToggleHDMIOutput:
		return ToggleTarget(s), true
	}
	return "", false
}

// JigglerMode is the mouse jiggler state exposed to automations. The
// mode strings are part of the service-call contract and must not change.
type JigglerMode string

func (m JigglerMode) String() string {
	return string(m)
}

const (
	JigglerDisabled JigglerMode = "disable"
	JigglerRelative JigglerMode = "relative"
	JigglerAbsolute JigglerMode = "absolute"
)

func ParseJigglerMode(s string) (JigglerMode, bool) {
	switch JigglerMode(s) {
	case JigglerDisabled, JigglerRelative, JigglerAbsolute:
		return JigglerMode(s), true
	}
	return "", false
}

type HIDMode string

const (
	HIDModeUnknown HIDMode = "unknown"
	HIDModeNormal  HIDMode = "normal"
	HIDModeOnly    HIDMode = "hid-only"
)

// HardwareVersion is the device variant reported by the hardware endpoint.
type HardwareVersion string

const (
	HardwareAlpha HardwareVersion = "Alpha"
	HardwareBeta  HardwareVersion = "Beta"
	HardwarePCIE  HardwareVersion = "PCIE"
)

// Capability is a hardware dependent feature. Consumers check the
// snapshot's capability set instead of branching on version strings.
type Capability string

const (
	CapabilityHDDLed      Capability = "hdd_led"
	CapabilityHDMIControl Capability = "hdmi_control"
	CapabilityOLED        Capability = "oled"
	CapabilityWiFi        Capability = "wifi"
)

// CapabilitiesFor derives the hardware-bound capability set for a variant.
// OLED and WiFi presence come from the device itself, not the variant.
func CapabilitiesFor(hw HardwareVersion) map[Capability]struct{} {
	caps := make(map[Capability]struct{})
	switch hw {
	case HardwareAlpha:
		caps[CapabilityHDDLed] = struct{}{}
	case HardwarePCIE:
		caps[CapabilityHDMIControl] = struct{}{}
	}
	return caps
}
