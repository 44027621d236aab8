package nanokvm

import (
	"errors"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
)

func errorsIsAuth(err error) bool {
	return errors.Is(err, model.ErrAuthenticationFailed)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// LEDState mirrors the gpio endpoint: front panel LED levels sensed by
// the KVM.
type LEDState struct {
	Power bool `json:"pwr"`
	HDD   bool `json:"hdd"`
}

type VirtualDeviceState struct {
	Network bool `json:"network"`
	Disk    bool `json:"disk"`
}

type serviceState struct {
	Enabled bool `json:"enabled"`
}

// NetworkServiceState carries the two independently queried network
// service flags.
type NetworkServiceState struct {
	SSHEnabled  bool
	MDNSEnabled bool
}

type OLEDState struct {
	Exist bool `json:"exist"`
	Sleep int  `json:"sleep"`
}

type WiFiState struct {
	Supported bool `json:"supported"`
	Connected bool `json:"connected"`
}

type hidModeResponse struct {
	Mode string `json:"mode"`
}

// Info is the device identity block used for registration and the
// versions status group.
type Info struct {
	IP          string `json:"ip"`
	MDNS        string `json:"mdns"`
	Application string `json:"application"`
	Image       string `json:"image"`
	DeviceKey   string `json:"device_key"`
}

type hardwareResponse struct {
	Version string `json:"version"`
}

type mountedImageResponse struct {
	File string `json:"file"`
}

type cdromResponse struct {
	CDROM int `json:"cdrom"`
}

type JigglerState struct {
	Enabled bool   `json:"enabled"`
	Mode    string `json:"mode"`
}

type hdmiStateResponse struct {
	Enabled bool `json:"enabled"`
}

type gpioRequest struct {
	Type     string `json:"type"`
	Duration int    `json:"duration"`
}

type pasteRequest struct {
	Content string `json:"content"`
}

type jigglerRequest struct {
	Enabled bool   `json:"enabled"`
	Mode    string `json:"mode"`
}

type virtualDeviceRequest struct {
	Device string `json:"device"`
	Enable bool   `json:"enable"`
}

type enableRequest struct {
	Enable bool `json:"enable"`
}

type wolRequest struct {
	MAC string `json:"mac,omitempty"`
}

type latestVersionResponse struct {
	Latest string `json:"latest"`
}
