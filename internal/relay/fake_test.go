package relay

import (
	"errors"
	"sync"

	"github.com/nerrad567/chompy/internal/infrastructure/mqtt"
)

type published struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// fakeBroker is an in-memory stand-in for *mqtt.Client. Publish delivers
// synchronously to matching exact-topic subscribers.
type fakeBroker struct {
	mu         sync.Mutex
	connected  bool
	publishErr error
	handlers   map[string]mqtt.MessageHandler
	published  []published
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{connected: true, handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBroker) Publish(topic string, payload []byte, qos byte, retained bool) error {
	b.mu.Lock()
	if b.publishErr != nil {
		err := b.publishErr
		b.mu.Unlock()
		return err
	}
	b.published = append(b.published, published{topic, payload, qos, retained})
	h := b.handlers[topic]
	b.mu.Unlock()

	if h != nil {
		return h(topic, payload)
	}
	return nil
}

func (b *fakeBroker) Subscribe(topic string, _ byte, handler mqtt.MessageHandler) error {
	if handler == nil {
		return errors.New("nil handler")
	}
	b.mu.Lock()
	b.handlers[topic] = handler
	b.mu.Unlock()
	return nil
}

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroker) setConnected(v bool) {
	b.mu.Lock()
	b.connected = v
	b.mu.Unlock()
}

func (b *fakeBroker) messages() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]published, len(b.published))
	copy(out, b.published)
	return out
}

// deliver injects a message as if it arrived from the broker.
func (b *fakeBroker) deliver(topic string, payload []byte) error {
	b.mu.Lock()
	h := b.handlers[topic]
	b.mu.Unlock()
	if h == nil {
		return errors.New("no subscriber for " + topic)
	}
	return h(topic, payload)
}
