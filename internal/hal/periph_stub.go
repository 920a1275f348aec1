//go:build !linux || !(arm || arm64) || nogpio

package hal

import "fmt"

// Open always fails on builds without GPIO support. Use a MemoryPin
// (hardware.simulate) instead.
func Open(name string) (Pin, error) {
	return nil, fmt.Errorf("opening %s: %w", name, ErrNoGPIO)
}
