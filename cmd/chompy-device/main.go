// Chompy device - snack dispenser firmware
//
// The device logs its network identity at boot, enables radio power saving,
// parks the motor pin low and then pulses the pin for every dispense command
// it receives over MQTT. Its log lines are also published for the agent.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/chompy/internal/hal"
	"github.com/nerrad567/chompy/internal/infrastructure/config"
	"github.com/nerrad567/chompy/internal/infrastructure/logging"
	"github.com/nerrad567/chompy/internal/infrastructure/mqtt"
	"github.com/nerrad567/chompy/internal/relay"
	"github.com/nerrad567/chompy/internal/snackbot"
)

// Version information - set at build time via ldflags
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const serviceName = "chompy-device"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run boots the device and services commands until ctx is cancelled.
func run(ctx context.Context) error {
	log := logging.Default(serviceName)
	log.Info("starting Chompy device",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if err := config.LoadEnvFile(config.DefaultEnvFile); err != nil {
		return err
	}
	path := config.Path()
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", path)

	// The device announces presence under its own ID; the agent watches it.
	cfg.MQTT.Broker.ClientID = cfg.Device.ID

	log = logging.New(cfg.Logging, serviceName, version).With("device_id", cfg.Device.ID)

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	// From here on log lines also reach the agent.
	local := log
	var relayed *relay.LogHandler
	log = log.WrapHandler(func(h slog.Handler) slog.Handler {
		relayed = relay.NewLogHandler(h, mqttClient, cfg.Device.ID)
		return relayed
	})
	defer func() {
		relayed.Close()
		if n := relayed.Dropped(); n > 0 {
			local.Warn("device log lines not relayed", "dropped", n)
		}
	}()
	mqttClient.SetLogger(log.With("component", "mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", mqttClient.ClientID(),
	)

	opts, err := hardware(cfg.Hardware)
	if err != nil {
		return err
	}
	opts.PowerSave = cfg.Hardware.PowerSave
	opts.Logger = log.Logger

	device, err := snackbot.New(opts)
	if err != nil {
		return fmt.Errorf("creating device: %w", err)
	}
	if err := device.Boot(); err != nil {
		return fmt.Errorf("booting device: %w", err)
	}

	err = relay.ListenCommands(mqttClient, cfg.Device.ID, mqttClient.QoS(), func(cmd relay.Command) {
		if postErr := device.Dispense(cmd); postErr != nil {
			log.Warn("dropping dispense command", "command_id", cmd.ID, "error", postErr)
		}
	})
	if err != nil {
		return fmt.Errorf("listening for commands: %w", err)
	}
	log.Info("initialisation complete, waiting for commands")

	if err := device.Run(ctx); err != nil {
		return fmt.Errorf("running device: %w", err)
	}

	log.Info("Chompy device stopped")
	return nil
}

// hardware selects the pin, diagnostics and power manager for cfg.
func hardware(cfg config.HardwareConfig) (snackbot.Options, error) {
	if cfg.Simulate {
		return snackbot.Options{
			Pin:         hal.NewMemoryPin(cfg.MotorPin),
			Diagnostics: snackbot.StaticDiagnostics{MAC: "00:00:00:00:00:00", Network: "simulated", Strength: 0},
			Power:       snackbot.NoopPowerManager{},
		}, nil
	}

	pin, err := hal.Open(cfg.MotorPin)
	if err != nil {
		return snackbot.Options{}, fmt.Errorf("opening motor pin: %w", err)
	}
	return snackbot.Options{
		Pin:         pin,
		Diagnostics: snackbot.NewLinuxDiagnostics(cfg.Interface),
		Power:       snackbot.NewIWPowerManager(cfg.Interface),
	}, nil
}
