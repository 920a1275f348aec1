package hal

import (
	"fmt"
	"sync"
)

// MemoryPin is an in-memory Pin that records every write.
//
// It is used when hardware.simulate is set and by tests. Unlike the real
// drivers it is safe for concurrent use so tests can inspect it while the
// event loop runs.
type MemoryPin struct {
	name string

	mu         sync.Mutex
	mode       Mode
	configured bool
	level      Level
	writes     []Level

	// OnWrite, if set, is called after every successful write.
	OnWrite func(Level)
}

// NewMemoryPin returns an unconfigured in-memory pin.
func NewMemoryPin(name string) *MemoryPin {
	return &MemoryPin{name: name}
}

// Name implements Pin.
func (p *MemoryPin) Name() string {
	return p.name
}

// Configure implements Pin.
func (p *MemoryPin) Configure(mode Mode) error {
	if mode != DigitalOut {
		return fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}

	p.mu.Lock()
	p.mode = mode
	p.configured = true
	p.mu.Unlock()
	return nil
}

// Write implements Pin.
func (p *MemoryPin) Write(level Level) error {
	p.mu.Lock()
	if !p.configured {
		p.mu.Unlock()
		return fmt.Errorf("writing %s: %w", p.name, ErrNotConfigured)
	}
	p.level = level
	p.writes = append(p.writes, level)
	hook := p.OnWrite
	p.mu.Unlock()

	if hook != nil {
		hook(level)
	}
	return nil
}

// Level returns the last written level.
func (p *MemoryPin) Level() Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Configured reports whether Configure has succeeded.
func (p *MemoryPin) Configured() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.configured
}

// Writes returns a copy of every level written so far, oldest first.
func (p *MemoryPin) Writes() []Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Level, len(p.writes))
	copy(out, p.writes)
	return out
}
