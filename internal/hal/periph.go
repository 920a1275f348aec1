//go:build linux && (arm || arm64) && !nogpio

package hal

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// Open initialises the periph host drivers and returns the named GPIO pin.
//
// Pins are addressed by their host names, e.g. "GPIO9" for BCM 9.
// host.Init is idempotent, so Open may be called more than once.
func Open(name string) (Pin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialising gpio host: %w", err)
	}

	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPin, name)
	}

	return newPeriphPin(p), nil
}
