package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/chompy/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 30 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// statusQoS is used for presence messages regardless of the configured QoS,
	// so a retained offline will is never lost.
	statusQoS = 1

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// Presence values carried in StatusPayload.Status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Offline reasons.
const (
	ReasonUnexpectedDisconnect = "unexpected_disconnect"
	ReasonGracefulShutdown     = "graceful_shutdown"
)

// StatusPayload is the retained presence message on Topics.Status.
type StatusPayload struct {
	Status    string    `json:"status"`
	ClientID  string    `json:"client_id"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Online reports whether the payload announces an online client.
func (p StatusPayload) Online() bool {
	return p.Status == StatusOnline
}

// ParseStatus decodes a presence message.
func ParseStatus(payload []byte) (StatusPayload, error) {
	var p StatusPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return StatusPayload{}, fmt.Errorf("decoding status payload: %w", err)
	}
	if p.Status != StatusOnline && p.Status != StatusOffline {
		return StatusPayload{}, fmt.Errorf("decoding status payload: unknown status %q", p.Status)
	}
	return p, nil
}

// buildClientOptions creates paho MQTT options from Chompy config.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - Auto-reconnect with exponential backoff
//   - TLS configuration (if enabled)
//   - Clean session mode
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))

	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	// Clean session: a dispense queued while the device was away must not
	// replay when it returns.
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	return opts
}

// configureLWT sets up Last Will and Testament for offline detection.
//
// The broker publishes the will if the client disconnects without saying
// goodbye. The agent's presence tracker reads it to answer /status.
//
// Topic: chompy/status/{client_id}
// QoS: 1
// Retained: true (new subscribers see last status)
func configureLWT(opts *pahomqtt.ClientOptions, clientID string) {
	opts.SetWill(Topics{}.Status(clientID), string(buildOfflinePayload(clientID, ReasonUnexpectedDisconnect)), statusQoS, true)
}

// buildOnlinePayload creates the JSON payload for online status messages.
func buildOnlinePayload(clientID string) []byte {
	return buildStatusPayload(StatusPayload{
		Status:    StatusOnline,
		ClientID:  clientID,
		Timestamp: time.Now().UTC(),
	})
}

// buildOfflinePayload creates the JSON payload for offline status messages.
func buildOfflinePayload(clientID, reason string) []byte {
	return buildStatusPayload(StatusPayload{
		Status:    StatusOffline,
		ClientID:  clientID,
		Reason:    reason,
		Timestamp: time.Now().UTC(),
	})
}

func buildStatusPayload(p StatusPayload) []byte {
	//nolint:errcheck // StatusPayload has only marshalable fields
	b, _ := json.Marshal(p)
	return b
}
