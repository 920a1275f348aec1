// Chompy agent - HTTP gateway for the snack dispenser
//
// The agent serves /status and /dispense to HTTP callers and relays dispense
// commands to the device over MQTT. Device presence is read from the
// device's retained status topic; the device's log lines are copied into the
// agent's log.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/chompy/internal/api"
	"github.com/nerrad567/chompy/internal/infrastructure/config"
	"github.com/nerrad567/chompy/internal/infrastructure/logging"
	"github.com/nerrad567/chompy/internal/infrastructure/mqtt"
	"github.com/nerrad567/chompy/internal/relay"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const serviceName = "chompy-agent"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default(serviceName)
	log.Info("starting Chompy agent",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if cfg.MQTT.Broker.ClientID == cfg.Device.ID {
		return fmt.Errorf("mqtt.broker.client_id %q must differ from device.id", cfg.Device.ID)
	}

	log = logging.New(cfg.Logging, serviceName, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log.With("component", "mqtt"))
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", mqttClient.ClientID(),
	)

	tracker := relay.NewTracker(cfg.Device.ID, mqttClient)
	tracker.SetLogger(log.With("component", "presence").Logger)
	if err := tracker.Start(mqttClient); err != nil {
		return fmt.Errorf("tracking device presence: %w", err)
	}

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		// Presence is unknown until the retained status is redelivered.
		tracker.Reset()
		log.Warn("MQTT disconnected", "error", err)
	})

	if err := relay.ForwardLogs(mqttClient, cfg.Device.ID, log.With("component", "device-log").Logger); err != nil {
		log.Warn("device log relay unavailable", "error", err)
	}

	dispatcher := relay.NewDispatcher(mqttClient, cfg.Device.ID, mqttClient.QoS())
	dispatcher.SetLogger(log.With("component", "dispatcher").Logger)

	server, err := api.New(api.Deps{
		Config:     cfg.API,
		Dispense:   cfg.Dispense,
		Logger:     log.With("component", "api"),
		Presence:   tracker,
		Dispatcher: dispatcher,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, mqttClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal",
		"device_id", cfg.Device.ID,
		"address", server.Addr(),
		"subscriptions", mqttClient.SubscriptionCount(),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("Chompy agent stopped")
	return nil
}

// loadConfig loads .env, then the YAML configuration.
func loadConfig(log *logging.Logger) (*config.Config, error) {
	if err := config.LoadEnvFile(config.DefaultEnvFile); err != nil {
		return nil, err
	}

	path := config.Path()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", path)
	return cfg, nil
}

type brokerHealth interface {
	HealthCheck(ctx context.Context) error
	SubscriptionCount() int
}

type serverHealth interface {
	HealthCheck(ctx context.Context) error
}

// healthCheck verifies the broker connection, the presence subscription
// and the HTTP server.
func healthCheck(ctx context.Context, broker brokerHealth, server serverHealth) error {
	if err := broker.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if broker.SubscriptionCount() == 0 {
		return fmt.Errorf("mqtt: no active subscriptions")
	}
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
