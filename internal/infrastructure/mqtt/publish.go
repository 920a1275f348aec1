package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outgoing messages. Chompy payloads are a few hundred bytes.
const maxPayloadSize = 64 << 10

// Publish sends a message to the specified MQTT topic.
//
// The call returns once the broker has the message (QoS 1/2) or the message
// is on the wire (QoS 0). It never waits for the receiving client.
//
// Parameters:
//   - topic: e.g. Topics{}.Command("chompy-01", CommandDispense)
//   - payload: JSON message body
//   - qos: 0, 1, or 2
//   - retained: true only for state such as presence; never for commands
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
