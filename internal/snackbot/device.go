package snackbot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nerrad567/chompy/internal/hal"
	"github.com/nerrad567/chompy/internal/relay"
)

// eventQueueSize bounds events waiting for the loop. Posting blocks when full.
const eventQueueSize = 32

// Device is the dispenser: one motor pin driven from a single event loop.
type Device struct {
	pin       hal.Pin
	diag      Diagnostics
	power     PowerManager
	sched     Scheduler
	powerSave bool
	logger    *slog.Logger

	events  chan func()
	done    chan struct{}
	runMu   sync.Mutex
	running bool

	// Owned by the event loop after Boot.
	booted bool
	level  hal.Level
}

// Options configures a Device.
type Options struct {
	// Pin is the motor output. Required.
	Pin hal.Pin

	// Diagnostics reports network identity at boot. Nil skips those lines.
	Diagnostics Diagnostics

	// Power controls radio power saving. Nil means NoopPowerManager.
	Power PowerManager

	// PowerSave is the power-save state applied at boot.
	PowerSave bool

	// Scheduler arms off-timers. Nil uses real timers posting into the loop.
	Scheduler Scheduler

	// Logger receives the device's log lines.
	Logger *slog.Logger
}

// New creates a Device. Call Boot, then Run.
func New(opts Options) (*Device, error) {
	if opts.Pin == nil {
		return nil, fmt.Errorf("motor pin is required")
	}

	d := &Device{
		pin:       opts.Pin,
		diag:      opts.Diagnostics,
		power:     opts.Power,
		sched:     opts.Scheduler,
		powerSave: opts.PowerSave,
		logger:    opts.Logger,
		events:    make(chan func(), eventQueueSize),
		done:      make(chan struct{}),
	}
	if d.power == nil {
		d.power = NoopPowerManager{}
	}
	if d.sched == nil {
		d.sched = loopScheduler{post: d.post}
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	return d, nil
}

// Boot reports diagnostics, applies power save and puts the motor pin into
// its resting state.
//
// Diagnostics and power-save failures are logged and do not stop the boot.
// A pin that cannot be configured or driven low is fatal: the motor state
// would be unknown.
func (d *Device) Boot() error {
	d.logger.Info("Starting up")
	d.logDiagnostics()

	if err := d.power.SetPowerSave(d.powerSave); err != nil {
		d.logger.Warn("setting power save failed", "enabled", d.powerSave, "error", err)
	}

	if err := d.pin.Configure(hal.DigitalOut); err != nil {
		return fmt.Errorf("configuring motor pin: %w", err)
	}
	if err := d.pin.Write(hal.Low); err != nil {
		return fmt.Errorf("resetting motor pin: %w", err)
	}
	d.level = hal.Low
	d.booted = true
	return nil
}

func (d *Device) logDiagnostics() {
	if d.diag == nil {
		return
	}

	if mac, err := d.diag.MACAddress(); err != nil {
		d.logger.Warn("reading MAC address failed", "error", err)
	} else {
		d.logger.Info("Mac address", "mac", mac)
	}

	if ssid, err := d.diag.SSID(); err != nil {
		d.logger.Warn("reading SSID failed", "error", err)
	} else {
		d.logger.Info("SSID", "ssid", ssid)
	}

	if rssi, err := d.diag.RSSI(); err != nil {
		d.logger.Warn("reading signal strength failed", "error", err)
	} else {
		d.logger.Info("Wifi signal strength", "rssi", rssi)
	}
}

// Dispense queues a dispense for the event loop and returns without waiting
// for it to run. It is safe to call from any goroutine.
func (d *Device) Dispense(cmd relay.Command) error {
	return d.post(func() { d.handleDispense(cmd) })
}

// handleDispense runs on the event loop.
func (d *Device) handleDispense(cmd relay.Command) {
	d.logger.Info("Dispensing",
		"seconds", cmd.Amount,
		"command_id", cmd.ID,
	)

	d.write(hal.High)
	d.sched.Wakeup(cmd.Duration(), func() {
		d.write(hal.Low)
	})
}

// write drives the pin and tracks its level. Runs on the event loop.
func (d *Device) write(level hal.Level) {
	if err := d.pin.Write(level); err != nil {
		d.logger.Error("writing motor pin failed", "level", level.String(), "error", err)
		return
	}
	d.level = level
}

// post hands fn to the event loop.
func (d *Device) post(fn func()) error {
	select {
	case <-d.done:
		return ErrStopped
	default:
	}

	select {
	case d.events <- fn:
		return nil
	case <-d.done:
		return ErrStopped
	}
}

// Run executes the event loop until ctx is cancelled.
//
// On exit the motor is driven low if it is still running, and later
// callbacks are dropped.
func (d *Device) Run(ctx context.Context) error {
	if !d.booted {
		return ErrNotBooted
	}

	d.runMu.Lock()
	select {
	case <-d.done:
		d.runMu.Unlock()
		return ErrStopped
	default:
	}
	if d.running {
		d.runMu.Unlock()
		return ErrAlreadyRunning
	}
	d.running = true
	d.runMu.Unlock()

	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			if d.level == hal.High {
				d.logger.Info("stopping with motor running, switching off")
				d.write(hal.Low)
			}
			return nil
		case fn := <-d.events:
			fn()
		}
	}
}
