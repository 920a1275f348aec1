package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nerrad567/chompy/internal/infrastructure/mqtt"
)

// Dispatcher publishes dispense commands to one device.
//
// It is fire-and-forget: Dispense returns once the broker has the message,
// never waiting for the device to act on it.
type Dispatcher struct {
	pub      Publisher
	deviceID string
	qos      byte
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher addressing deviceID.
func NewDispatcher(pub Publisher, deviceID string, qos byte) *Dispatcher {
	return &Dispatcher{
		pub:      pub,
		deviceID: deviceID,
		qos:      qos,
		logger:   slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger for dispatched commands.
func (d *Dispatcher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// Dispense sends a dispense command for amount seconds.
//
// Returns:
//   - Command: The command as sent (its ID appears in the device's log)
//   - error: ErrDispatchFailed wrapping the cause if the broker did not accept it
func (d *Dispatcher) Dispense(ctx context.Context, amount float64) (Command, error) {
	if err := ctx.Err(); err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	cmd := NewCommand(amount)
	payload, err := cmd.Encode()
	if err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	topic := mqtt.Topics{}.Command(d.deviceID, mqtt.CommandDispense)
	if err := d.pub.Publish(topic, payload, d.qos, false); err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	d.logger.Debug("dispense command published",
		"command_id", cmd.ID,
		"device_id", d.deviceID,
		"amount", cmd.Amount,
	)
	return cmd, nil
}
