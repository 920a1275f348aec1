package relay

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nerrad567/chompy/internal/infrastructure/mqtt"
)

// statusQoS matches the QoS the device publishes its presence with.
const statusQoS = 1

// Presence answers whether the device is currently reachable.
type Presence interface {
	IsConnected() bool
}

// Tracker follows a device's retained status topic.
//
// The device publishes "online" on every connect and the broker publishes
// its "offline" Last Will when the device drops, so the latest message on
// the topic is the device's connectivity. The tracker also reports offline
// while the agent itself has no broker connection, since nothing could be
// delivered.
//
// Thread Safety: all methods are safe for concurrent use.
type Tracker struct {
	deviceID string
	link     Link

	mu       sync.RWMutex
	online   bool
	lastSeen time.Time
	reason   string

	logger *slog.Logger
}

// NewTracker creates a Tracker for deviceID. link may be nil.
func NewTracker(deviceID string, link Link) *Tracker {
	return &Tracker{
		deviceID: deviceID,
		link:     link,
		logger:   slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger for presence transitions.
func (t *Tracker) SetLogger(logger *slog.Logger) {
	if logger != nil {
		t.logger = logger
	}
}

// Start subscribes to the device's status topic.
func (t *Tracker) Start(sub Subscriber) error {
	topic := mqtt.Topics{}.Status(t.deviceID)
	if err := sub.Subscribe(topic, statusQoS, t.HandleStatus); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	return nil
}

// HandleStatus consumes one status message. It is an mqtt.MessageHandler.
func (t *Tracker) HandleStatus(_ string, payload []byte) error {
	status, err := mqtt.ParseStatus(payload)
	if err != nil {
		return err
	}
	if status.ClientID != "" && status.ClientID != t.deviceID {
		return fmt.Errorf("status for %q on topic of %q", status.ClientID, t.deviceID)
	}

	t.mu.Lock()
	changed := t.online != status.Online()
	t.online = status.Online()
	t.reason = status.Reason
	t.lastSeen = status.Timestamp
	t.mu.Unlock()

	if changed {
		t.logger.Info("device presence changed",
			"device_id", t.deviceID,
			"online", status.Online(),
			"reason", status.Reason,
		)
	}
	return nil
}

// Reset forgets the last known status. The agent calls it when its own
// broker connection drops; the retained message is redelivered on reconnect.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.online = false
	t.reason = ""
	t.mu.Unlock()
}

// IsConnected implements Presence.
func (t *Tracker) IsConnected() bool {
	if t.link != nil && !t.link.IsConnected() {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.online
}

// LastSeen returns the timestamp of the last status message and the offline
// reason, if any.
func (t *Tracker) LastSeen() (time.Time, string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSeen, t.reason
}
