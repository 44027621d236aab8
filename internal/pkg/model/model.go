package model

import (
	"maps"
	"time"
)

// GroupState records when a status group was last fetched successfully
// and whether the values carried for it are stale (kept from an earlier
// poll because the latest query for the group failed).
type GroupState struct {
	FetchedAt time.Time `json:"fetched_at"`
	Stale     bool      `json:"stale"`
}

// Snapshot is an immutable point-in-time view of the device. A poll
// builds a new Snapshot and publishes it whole; nothing mutates one
// after publication.
type Snapshot struct {
	FetchedAt time.Time `json:"fetched_at"`
	// Partial is set when at least one status group failed and its
	// values were retained from the previous snapshot.
	Partial bool `json:"partial"`

	Groups       map[StatusGroup]GroupState `json:"groups"`
	Capabilities map[Capability]struct{}    `json:"-"`

	PowerLED bool `json:"power_led"`
	HDDLED   bool `json:"hdd_led"`

	VirtualNetworkEnabled bool `json:"virtual_network_enabled"`
	VirtualDiskEnabled    bool `json:"virtual_disk_enabled"`

	SSHEnabled  bool `json:"ssh_enabled"`
	MDNSEnabled bool `json:"mdns_enabled"`

	OLEDPresent      bool `json:"oled_present"`
	OLEDSleepSeconds int  `json:"oled_sleep_seconds"`

	WiFiSupported bool `json:"wifi_supported"`
	WiFiConnected bool `json:"wifi_connected"`

	HIDMode HIDMode `json:"hid_mode"`

	HardwareVersion    HardwareVersion `json:"hardware_version"`
	ApplicationVersion string          `json:"application_version"`

	MountedImage string `json:"mounted_image"`
	CDROMMode    bool   `json:"cdrom_mode"`

	MouseJiggler JigglerMode `json:"mouse_jiggler_mode"`

	// HDMIOutput is populated only on hardware with HDMI control.
	// nil means the capability is absent, not "off".
	HDMIOutput *bool `json:"hdmi_output,omitempty"`
}

// NewSnapshot returns an empty snapshot with initialised maps and
// enum fields at their unknown values.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Groups:       make(map[StatusGroup]GroupState),
		Capabilities: make(map[Capability]struct{}),
		HIDMode:      HIDModeUnknown,
		MouseJiggler: JigglerDisabled,
	}
}

// Clone deep-copies the snapshot so a poll can build the next one
// without touching the published reference.
func (s *Snapshot) Clone() *Snapshot {
	next := *s
	next.Groups = maps.Clone(s.Groups)
	next.Capabilities = maps.Clone(s.Capabilities)
	if s.HDMIOutput != nil {
		v := *s.HDMIOutput
		next.HDMIOutput = &v
	}
	return &next
}

// HasCapability reports whether the hardware supports the feature.
func (s *Snapshot) HasCapability(c Capability) bool {
	_, ok := s.Capabilities[c]
	return ok
}

// GroupFresh reports whether the group was fetched successfully on the
// poll that produced this snapshot.
func (s *Snapshot) GroupFresh(g StatusGroup) bool {
	state, ok := s.Groups[g]
	return ok && !state.Stale
}

// Update is what poller subscribers receive. Snapshot is nil only
// before the very first successful poll.
type Update struct {
	Snapshot  *Snapshot
	Available bool
	Partial   bool
}

// Device describes the bridged NanoKVM for entity registration. The
// mDNS name (trailing dot normalised) doubles as the unique id.
type Device struct {
	ID           string
	Name         string
	MDNS         string
	Model        string
	Manufacturer string
}
