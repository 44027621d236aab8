package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
)

// Write publishes changed datapoints to their entity state topics.
func (s *service) Write(ctx context.Context, data []map[string]any) error {
	for _, record := range data {
		slugName := record["slug"].(string)
		def, ok := defsBySlug[slugName]
		if !ok {
			continue
		}
		topic := stateTopic(record["identifier"].(string), def.component, slugName)
		token := s.client.Publish(topic, 0, false, record["value"].(string))
		if token.WaitTimeout(time.Second * 10) {
			continue
		}
		if err := token.Error(); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDevice announces every entity the hardware supports via
// retained discovery config messages. Announcing twice is a no-op.
func (s *service) RegisterDevice(device *model.Device) error {
	if _, exists := s.configuredDevices[device.ID]; exists {
		return nil
	}
	snapshot := s.snapshotFn()

	for _, def := range entityDefs {
		if !def.wantedFor(snapshot) {
			continue
		}
		payload, err := json.Marshal(def.discoveryMessage(device))
		if err != nil {
			return err
		}
		token := s.client.Publish(configTopic(device.ID, def), 1, true, payload)
		if !token.WaitTimeout(time.Second * 5) {
			if err := token.Error(); err != nil {
				return err
			}
		}
		s.logger.Debug("announced entity",
			zap.String("component", def.component),
			zap.String("slug", def.slug))
	}

	if err := s.subscribeCommands(device); err != nil {
		return err
	}
	s.configuredDevices[device.ID] = struct{}{}
	return nil
}

// PublishAvailability drives the shared availability topic; entities
// render unavailable in Home Assistant while it reads offline.
func (s *service) PublishAvailability(ctx context.Context, device *model.Device, available bool) error {
	payload := "offline"
	if available {
		payload = "online"
	}
	token := s.client.Publish(availabilityTopic(device.ID), 1, true, payload)
	if token.WaitTimeout(time.Second * 5) {
		return nil
	}
	return token.Error()
}
