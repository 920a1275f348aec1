package hal

import (
	"errors"
	"fmt"
)

// Level is the logic level of a digital pin.
type Level int

const (
	// Low drives the pin to 0 (motor off).
	Low Level = 0

	// High drives the pin to 1 (motor on).
	High Level = 1
)

// String returns "0" or "1".
func (l Level) String() string {
	if l == High {
		return "1"
	}
	return "0"
}

// Mode is the electrical configuration of a pin.
type Mode int

const (
	// DigitalOut configures the pin as a push-pull digital output.
	DigitalOut Mode = iota + 1
)

func (m Mode) String() string {
	switch m {
	case DigitalOut:
		return "digital_out"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Sentinel errors for pin operations.
var (
	// ErrNotConfigured is returned by Write before Configure succeeded.
	ErrNotConfigured = errors.New("pin not configured")

	// ErrUnknownPin is returned when the named pin does not exist on this host.
	ErrUnknownPin = errors.New("unknown pin")

	// ErrUnsupportedMode is returned for modes the implementation cannot provide.
	ErrUnsupportedMode = errors.New("unsupported pin mode")

	// ErrNoGPIO is returned by Open on builds without GPIO support.
	ErrNoGPIO = errors.New("gpio not available in this build")
)

// Pin is a single digital output line.
//
// Implementations are not required to be safe for concurrent use; the device
// event loop is the only writer.
type Pin interface {
	// Name returns the pin's host name, e.g. "GPIO9".
	Name() string

	// Configure sets the pin's mode. It must be called before Write.
	Configure(mode Mode) error

	// Write drives the pin to level.
	Write(level Level) error
}
