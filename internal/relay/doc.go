// Package relay carries Chompy's agent/device messages over the MQTT bus.
//
// It owns the wire formats and the topic wiring on both sides:
//
//	agent:  Dispatcher.Dispense  → chompy/command/{device}/dispense
//	device: ListenCommands       ← chompy/command/{device}/dispense
//	agent:  Tracker              ← chompy/status/{device}   (retained, LWT)
//	device: LogHandler           → chompy/log/{device}
//	agent:  ForwardLogs          ← chompy/log/{device}
//
// Everything here depends on the small Broker interfaces below rather than
// on *mqtt.Client, so tests run against in-memory fakes.
package relay

import "github.com/nerrad567/chompy/internal/infrastructure/mqtt"

// Publisher sends a message to the bus.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Subscriber registers a handler for a topic.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Link reports whether this process currently has a broker connection.
type Link interface {
	IsConnected() bool
}
