package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Device: &DeviceConfig{
			Host:             "nanokvm.local",
			PollInterval:     15 * time.Second,
			FailureThreshold: 3,
			QueueDepth:       8,
		},
		Mqtt:   &MqttConfig{},
		Server: &ServerConfig{},
	}
}

func TestValidate_HostRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Device.Host = ""
	assert.Error(t, cfg.Validate())

	cfg.Device = nil
	assert.Error(t, cfg.Validate())
}

func TestValidate_PollIntervalClamped(t *testing.T) {
	cfg := validConfig()
	cfg.Device.PollInterval = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultPollInterval, cfg.Device.PollInterval)

	cfg.Device.PollInterval = time.Second
	require.NoError(t, cfg.Validate())
	assert.Equal(t, MinPollInterval, cfg.Device.PollInterval)

	cfg.Device.PollInterval = time.Hour
	require.NoError(t, cfg.Validate())
	assert.Equal(t, MaxPollInterval, cfg.Device.PollInterval)

	cfg.Device.PollInterval = 30 * time.Second
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 30*time.Second, cfg.Device.PollInterval)
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	cfg.Device.FailureThreshold = 0
	cfg.Device.QueueDepth = -1
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultFailureThreshold, cfg.Device.FailureThreshold)
	assert.Equal(t, DefaultQueueDepth, cfg.Device.QueueDepth)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("NANOKVM_HOST", "192.168.1.50")
	t.Setenv("POLL_INTERVAL", "45s")
	t.Setenv("MQTT_HOST", "tcp://broker:1883")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.50", cfg.Device.Host)
	assert.Equal(t, "admin", cfg.Device.Username)
	assert.Equal(t, 45*time.Second, cfg.Device.PollInterval)
	assert.Equal(t, "tcp://broker:1883", cfg.Mqtt.Host)
	assert.Equal(t, DefaultQueueDepth, cfg.Device.QueueDepth)
}

func TestFromEnv_MissingHost(t *testing.T) {
	t.Setenv("NANOKVM_HOST", "")
	_, err := FromEnv()
	assert.Error(t, err)
}
