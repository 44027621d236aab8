package mqtt

import (
	"context"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/dispatcher"
	"github.com/dsetareh/homeassistant-nanokvm/internal/pkg/model"
)

const commandWait = 30 * time.Second

// subscribeCommands wires every commandable entity's command topic to
// the dispatcher. Handlers run on paho's callback goroutines; the
// dispatcher serialises the actual device calls.
func (s *service) subscribeCommands(device *model.Device) error {
	for _, def := range entityDefs {
		if !def.commandable {
			continue
		}
		def := def
		topic := commandTopic(device.ID, def.component, def.slug)
		token := s.client.Subscribe(topic, 1, func(_ paho_mqtt.Client, msg paho_mqtt.Message) {
			s.handleCommand(def, string(msg.Payload()))
		})
		if !token.WaitTimeout(time.Second * 5) {
			if err := token.Error(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *service) handleCommand(def entityDef, payload string) {
	ctx, cancel := context.WithTimeout(context.Background(), commandWait)
	defer cancel()

	var err error
	switch def.slug {
	case "ssh":
		err = s.dispatcher.SetToggle(ctx, model.ToggleSSH, payload == "on")
	case "mdns":
		err = s.dispatcher.SetToggle(ctx, model.ToggleMDNS, payload == "on")
	case "virtual_network":
		err = s.dispatcher.SetToggle(ctx, model.ToggleVirtualNetwork, payload == "on")
	case "virtual_disk":
		err = s.dispatcher.SetToggle(ctx, model.ToggleVirtualDisk, payload == "on")
	case "hdmi_output":
		err = s.dispatcher.SetToggle(ctx, model.ToggleHDMIOutput, payload == "on")
	case "mouse_jiggler_mode":
		err = s.dispatcher.SetMouseJiggler(ctx, payload)
	case "power_button":
		err = s.dispatcher.PushButton(ctx, model.ButtonPower, dispatcher.DefaultButtonDurationMs)
	case "reset_button":
		err = s.dispatcher.PushButton(ctx, model.ButtonReset, dispatcher.DefaultButtonDurationMs)
	case "reboot":
		err = s.dispatcher.Reboot(ctx)
	case "reset_hid":
		err = s.dispatcher.ResetHID(ctx)
	case "reset_hdmi":
		err = s.dispatcher.ResetHDMI(ctx)
	case "update_application":
		err = s.dispatcher.UpdateApplication(ctx)
	case "paste":
		err = s.dispatcher.PasteText(ctx, payload)
	default:
		return
	}
	if err != nil {
		s.logger.Error("mqtt command failed",
			zap.String("entity", def.slug),
			zap.Error(err))
	}
}
