package config

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultPollInterval     = 15 * time.Second
	MinPollInterval         = 5 * time.Second
	MaxPollInterval         = 5 * time.Minute
	DefaultFailureThreshold = 3
	DefaultQueueDepth       = 8
)

type Config struct {
	Device      *DeviceConfig
	Mqtt        *MqttConfig
	Server      *ServerConfig
	DatabaseURL string
	LogLevel    string
}

type DeviceConfig struct {
	Host     string `env:"NANOKVM_HOST"`
	Username string `env:"NANOKVM_USERNAME" envDefault:"admin"`
	Password string `env:"NANOKVM_PASSWORD" envDefault:"admin"`

	PollInterval     time.Duration `env:"POLL_INTERVAL" envDefault:"15s"`
	FailureThreshold int           `env:"FAILURE_THRESHOLD" envDefault:"3"`
	QueueDepth       int           `env:"COMMAND_QUEUE_DEPTH" envDefault:"8"`
}

type MqttConfig struct {
	Host     string `env:"MQTT_HOST"`
	Username string `env:"MQTT_USER"`
	Password string `env:"MQTT_PASS"`
}

type ServerConfig struct {
	Address    string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8000"`
	Username   string `env:"API_USERNAME" envDefault:"admin"`
	Password   string `env:"API_PASSWORD"`
	SigningKey string `env:"API_SIGNING_KEY"`
}

// FromEnv builds a Config purely from environment variables. The CLI
// entrypoint builds the same structure from flags instead.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Device: &DeviceConfig{},
		Mqtt:   &MqttConfig{},
		Server: &ServerConfig{},
	}
	if err := env.Parse(cfg.Device); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg.Mqtt); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg.Server); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Validate checks required fields and clamps tunables into sane ranges.
func (c *Config) Validate() error {
	if c.Device == nil || c.Device.Host == "" {
		return errors.New("device host is required")
	}
	if c.Device.PollInterval <= 0 {
		c.Device.PollInterval = DefaultPollInterval
	}
	if c.Device.PollInterval < MinPollInterval {
		c.Device.PollInterval = MinPollInterval
	}
	if c.Device.PollInterval > MaxPollInterval {
		c.Device.PollInterval = MaxPollInterval
	}
	if c.Device.FailureThreshold <= 0 {
		c.Device.FailureThreshold = DefaultFailureThreshold
	}
	if c.Device.QueueDepth <= 0 {
		c.Device.QueueDepth = DefaultQueueDepth
	}
	return nil
}
