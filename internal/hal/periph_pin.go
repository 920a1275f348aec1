package hal

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// periphPin drives a GPIO line through periph.io.
type periphPin struct {
	pin        gpio.PinIO
	configured bool

	// preset is set while the line still holds the low level Configure
	// drove it to.
	preset bool
}

func newPeriphPin(p gpio.PinIO) *periphPin {
	return &periphPin{pin: p}
}

func (p *periphPin) Name() string {
	return p.pin.Name()
}

// Configure switches the line to output. periph needs an initial level for
// Out, so the line starts low and the first Write(Low) that follows is not
// repeated on the line. Boot's startup write therefore reaches the GPIO
// exactly once.
func (p *periphPin) Configure(mode Mode) error {
	if mode != DigitalOut {
		return fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}
	if err := p.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("configuring %s: %w", p.pin.Name(), err)
	}
	p.configured = true
	p.preset = true
	return nil
}

func (p *periphPin) Write(level Level) error {
	if !p.configured {
		return fmt.Errorf("writing %s: %w", p.pin.Name(), ErrNotConfigured)
	}
	if p.preset {
		p.preset = false
		if level == Low {
			return nil
		}
	}

	l := gpio.Low
	if level == High {
		l = gpio.High
	}
	if err := p.pin.Out(l); err != nil {
		return fmt.Errorf("writing %s: %w", p.pin.Name(), err)
	}
	return nil
}
