// Package publisher fans device state out to registered sinks (MQTT
// for Home Assistant, optionally Postgres for history). Values are
// deduplicated so a sink only sees changes.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
)

var errAlreadyRegistered = errors.New("publisher already registered")

var (
	registeredPublishers = make(map[string]publisher)
	sensors              sync.Map
)

type publisher interface {
	Write(ctx context.Context, data []map[string]any) error
	RegisterDevice(device *model.Device) error
	PublishAvailability(ctx context.Context, device *model.Device, available bool) error
}

// Datapoint is one entity value derived from a snapshot.
type Datapoint struct {
	Name  string
	Value string
}

func (d Datapoint) Slug() string {
	return strings.ReplaceAll(slug.Make(d.Name), "-", "_")
}

func RegisterPublisher(name string, p publisher) error {
	if _, ok := registeredPublishers[name]; ok {
		return errAlreadyRegistered
	}
	registeredPublishers[name] = p
	return nil
}

// Reset drops all registered publishers and cached values. Test helper.
func Reset() {
	registeredPublishers = make(map[string]publisher)
	sensors = sync.Map{}
}

// Datapoints flattens a snapshot into entity values, gated on the
// capabilities the hardware actually has.
func Datapoints(snapshot *model.Snapshot) []Datapoint {
	points := []Datapoint{
		{Name: "Power LED", Value: onOff(snapshot.PowerLED)},
		{Name: "Virtual Network", Value: onOff(snapshot.VirtualNetworkEnabled)},
		{Name: "Virtual Disk", Value: onOff(snapshot.VirtualDiskEnabled)},
		{Name: "SSH", Value: onOff(snapshot.SSHEnabled)},
		{Name: "mDNS", Value: onOff(snapshot.MDNSEnabled)},
		{Name: "HID Mode", Value: string(snapshot.HIDMode)},
		{Name: "Hardware Version", Value: string(snapshot.HardwareVersion)},
		{Name: "Application Version", Value: snapshot.ApplicationVersion},
		{Name: "Mounted Image", Value: snapshot.MountedImage},
		{Name: "Mouse Jiggler Mode", Value: snapshot.MouseJiggler.String()},
	}
	if snapshot.HasCapability(model.CapabilityHDDLed) {
		points = append(points, Datapoint{Name: "HDD LED", Value: onOff(snapshot.HDDLED)})
	}
	if snapshot.OLEDPresent {
		points = append(points, Datapoint{Name: "OLED Sleep", Value: strconv.Itoa(snapshot.OLEDSleepSeconds)})
	}
	if snapshot.WiFiSupported {
		points = append(points, Datapoint{Name: "WiFi Connected", Value: onOff(snapshot.WiFiConnected)})
	}
	if snapshot.MountedImage != "" {
		points = append(points, Datapoint{Name: "CD-ROM Mode", Value: onOff(snapshot.CDROMMode)})
	}
	if snapshot.HDMIOutput != nil {
		points = append(points, Datapoint{Name: "HDMI Output", Value: onOff(*snapshot.HDMIOutput)})
	}
	return points
}

// PublishSnapshot writes every changed datapoint to all publishers.
func PublishSnapshot(ctx context.Context, device *model.Device, snapshot *model.Snapshot) error {
	return PublishDatapoints(ctx, device, Datapoints(snapshot))
}

// PublishDatapoints writes the given datapoints to all publishers,
// skipping values that have not changed since the last publish.
func PublishDatapoints(ctx context.Context, device *model.Device, points []Datapoint) error {
	changed := lo.Filter(points, func(p Datapoint, _ int) bool {
		return shouldUpdate(device.ID, p.Slug(), p.Value)
	})
	if len(changed) == 0 {
		return nil
	}

	data := lo.Map(changed, func(p Datapoint, _ int) map[string]any {
		return map[string]any{
			"value":      p.Value,
			"slug":       p.Slug(),
			"timestamp":  time.Now(),
			"identifier": device.ID,
		}
	})

	for name, p := range registeredPublishers {
		if err := p.Write(ctx, data); err != nil {
			zap.L().Error("failed to publish data", zap.Error(err), zap.String("publisher", name))
			continue
		}
		zap.L().Debug("updated sensors", zap.Int("count", len(data)), zap.String("publisher", name))
	}
	return nil
}

// PublishAvailability propagates the online/offline state so entities
// render unavailable rather than false when the device is gone.
func PublishAvailability(ctx context.Context, device *model.Device, available bool) error {
	for name, p := range registeredPublishers {
		if err := p.PublishAvailability(ctx, device, available); err != nil {
			zap.L().Error("failed to publish availability", zap.Error(err), zap.String("publisher", name))
			continue
		}
	}
	return nil
}

func RegisterDevice(device *model.Device) error {
	for name, p := range registeredPublishers {
		if err := p.RegisterDevice(device); err != nil {
			zap.L().Error("failed to register device", zap.Error(err), zap.String("publisher", name))
			continue
		}
		zap.L().Debug("registered device", zap.String("device", device.ID), zap.String("publisher", name))
	}
	return nil
}

func shouldUpdate(identifier, slugName, newValue string) bool {
	key := fmt.Sprintf("%s_%s", identifier, slugName)
	oldValue, exists := sensors.Load(key)
	if exists && strings.EqualFold(newValue, oldValue.(string)) {
		return false
	}
	if !exists {
		zap.L().Info("configured sensor",
			zap.String("device", identifier),
			zap.String("sensor", slugName),
			zap.String("value", newValue))
	}
	sensors.Store(key, newValue)
	return true
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
