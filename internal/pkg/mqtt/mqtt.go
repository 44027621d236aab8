// Package mqtt publishes the bridged device to Home Assistant via MQTT
// discovery and maps command topics back onto the dispatcher.
package mqtt

import (
	"context"
	"errors"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
)

const discoveryPrefix = "homeassistant"

type commandDispatcher interface {
	PushButton(ctx context.Context, button model.ButtonType, durationMs int) error
	PasteText(ctx context.Context, text string) error
	SetMouseJiggler(ctx context.Context, mode string) error
	SetToggle(ctx context.Context, target model.ToggleTarget, desired bool) error
	Reboot(ctx context.Context) error
	ResetHDMI(ctx context.Context) error
	ResetHID(ctx context.Context) error
	UpdateApplication(ctx context.Context) error
}

type service struct {
	client     paho_mqtt.Client
	dispatcher commandDispatcher
	snapshotFn func() *model.Snapshot
	logger     *zap.Logger

	configuredDevices map[string]struct{}
}

// New wires an MQTT client to the dispatcher. snapshotFn gates which
// entities get announced, so hardware without a capability never grows
// the matching entity.
func New(client paho_mqtt.Client, dispatcher commandDispatcher, snapshotFn func() *model.Snapshot) *service {
	return &service{
		client:            client,
		dispatcher:        dispatcher,
		snapshotFn:        snapshotFn,
		logger:            zap.L(),
		configuredDevices: make(map[string]struct{}),
	}
}

func (s *service) Connect() error {
	token := s.client.Connect()
	if token.WaitTimeout(time.Second * 5) {
		return nil
	}
	if err := token.Error(); err != nil {
		return err
	}
	return errors.New("unable to connect in time")
}
