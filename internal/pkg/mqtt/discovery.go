package mqtt

import (
	"fmt"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
)

// discoveryMessage is the Home Assistant MQTT discovery payload,
// abbreviated keys as HA documents them.
type discoveryMessage struct {
	Name              string          `json:"name"`
	UniqueID          string          `json:"uniq_id"`
	StateTopic        string          `json:"stat_t,omitempty"`
	CommandTopic      string          `json:"cmd_t,omitempty"`
	AvailabilityTopic string          `json:"avty_t"`
	PayloadOn         string          `json:"pl_on,omitempty"`
	PayloadOff        string          `json:"pl_off,omitempty"`
	PayloadPress      string          `json:"pl_prs,omitempty"`
	Options           []string        `json:"options,omitempty"`
	EntityCategory    string          `json:"ent_cat,omitempty"`
	Icon              string          `json:"ic,omitempty"`
	Device            discoveryDevice `json:"dev"`
}

type discoveryDevice struct {
	Identifiers  []string `json:"ids"`
	Name         string   `json:"name"`
	Model        string   `json:"mdl"`
	Manufacturer string   `json:"mf"`
}

// entityDef describes one announced entity. Slug doubles as the state
// topic leaf and must match the publisher datapoint slugs.
type entityDef struct {
	component   string
	slug        string
	name        string
	commandable bool
	stateless   bool // button/text entities carry no state topic
	options     []string
	category    string
	icon        string
	// required capability, empty when the entity always exists
	capability model.Capability
	// present gates on snapshot fields beyond capabilities
	present func(*model.Snapshot) bool
}

var entityDefs = []entityDef{
	{component: "binary_sensor", slug: "power_led", name: "Power LED"},
	{component: "binary_sensor", slug: "hdd_led", name: "HDD LED", capability: model.CapabilityHDDLed},
	{component: "binary_sensor", slug: "wifi_connected", name: "WiFi Connected", capability: model.CapabilityWiFi},
	{component: "binary_sensor", slug: "cd_rom_mode", name: "CD-ROM Mode", category: "diagnostic"},
	{component: "binary_sensor", slug: "update_available", name: "Update Available", category: "diagnostic"},
	{component: "sensor", slug: "hid_mode", name: "HID Mode", category: "diagnostic"},
	{component: "sensor", slug: "hardware_version", name: "Hardware Version", category: "diagnostic"},
	{component: "sensor", slug: "application_version", name: "Application Version", category: "diagnostic"},
	{component: "sensor", slug: "mounted_image", name: "Mounted Image"},
	{component: "sensor", slug: "oled_sleep", name: "OLED Sleep", category: "diagnostic",
		present: func(s *model.Snapshot) bool { return s.OLEDPresent }},
	{component: "switch", slug: "ssh", name: "SSH", commandable: true, category: "config"},
	{component: "switch", slug: "mdns", name: "mDNS", commandable: true, category: "config"},
	{component: "switch", slug: "virtual_network", name: "Virtual Network", commandable: true},
	{component: "switch", slug: "virtual_disk", name: "Virtual Disk", commandable: true},
	{component: "switch", slug: "hdmi_output", name: "HDMI Output", commandable: true, capability: model.CapabilityHDMIControl},
	{component: "select", slug: "mouse_jiggler_mode", name: "Mouse Jiggler Mode", commandable: true,
		category: "config", icon: "mdi:mouse-variant",
		options: []string{
			model.JigglerDisabled.String(),
			model.JigglerRelative.String(),
			model.JigglerAbsolute.String(),
		}},
	{component: "button", slug: "power_button", name: "Power Button", commandable: true, stateless: true},
	{component: "button", slug: "reset_button", name: "Reset Button", commandable: true, stateless: true},
	{component: "button", slug: "reboot", name: "Reboot KVM", commandable: true, stateless: true, category: "config"},
	{component: "button", slug: "reset_hid", name: "Reset HID", commandable: true, stateless: true, category: "config"},
	{component: "button", slug: "reset_hdmi", name: "Reset HDMI", commandable: true, stateless: true, category: "config"},
	{component: "button", slug: "update_application", name: "Update Application", commandable: true, stateless: true, category: "config"},
	{component: "text", slug: "paste", name: "Paste Text", commandable: true, stateless: true},
}

// defsBySlug indexes state-bearing entities for topic construction.
var defsBySlug = func() map[string]entityDef {
	m := make(map[string]entityDef, len(entityDefs))
	for _, def := range entityDefs {
		if !def.stateless {
			m[def.slug] = def
		}
	}
	return m
}()

func (d entityDef) wantedFor(snapshot *model.Snapshot) bool {
	if snapshot == nil {
		return d.capability == "" && d.present == nil
	}
	if d.capability != "" && !snapshot.HasCapability(d.capability) {
		return false
	}
	if d.present != nil && !d.present(snapshot) {
		return false
	}
	return true
}

func configTopic(deviceID string, d entityDef) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", discoveryPrefix, d.component, deviceID, d.slug)
}

func stateTopic(deviceID, component, slug string) string {
	return fmt.Sprintf("%s/%s/%s/%s/state", discoveryPrefix, component, deviceID, slug)
}

func commandTopic(deviceID, component, slug string) string {
	return fmt.Sprintf("%s/%s/%s/%s/set", discoveryPrefix, component, deviceID, slug)
}

func availabilityTopic(deviceID string) string {
	return fmt.Sprintf("%s/%s/availability", discoveryPrefix, deviceID)
}

func (d entityDef) discoveryMessage(device *model.Device) discoveryMessage {
	msg := discoveryMessage{
		Name:              d.name,
		UniqueID:          fmt.Sprintf("%s_%s", device.ID, d.slug),
		AvailabilityTopic: availabilityTopic(device.ID),
		Options:           d.options,
		EntityCategory:    d.category,
		Icon:              d.icon,
		Device: discoveryDevice{
			Identifiers:  []string{device.ID},
			Name:         device.Name,
			Model:        device.Model,
			Manufacturer: device.Manufacturer,
		},
	}
	if !d.stateless {
		msg.StateTopic = stateTopic(device.ID, d.component, d.slug)
	}
	if d.commandable {
		msg.CommandTopic = commandTopic(device.ID, d.component, d.slug)
	}
	switch d.component {
	case "binary_sensor", "switch":
		msg.PayloadOn = "on"
		msg.PayloadOff = "off"
	case "button":
		msg.PayloadPress = "PRESS"
	}
	return msg
}
