package relay

import (
	"fmt"

	"github.com/nerrad567/chompy/internal/infrastructure/mqtt"
)

// ListenCommands subscribes the device to its dispense topic.
//
// handle is called on the MQTT client's goroutine for every well-formed
// command and must not block; the device posts it into its event loop.
// Malformed payloads are returned as errors to the client, which logs them.
func ListenCommands(sub Subscriber, deviceID string, qos byte, handle func(Command)) error {
	topic := mqtt.Topics{}.Command(deviceID, mqtt.CommandDispense)

	err := sub.Subscribe(topic, qos, func(_ string, payload []byte) error {
		cmd, err := DecodeCommand(payload)
		if err != nil {
			return err
		}
		handle(cmd)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return nil
}
