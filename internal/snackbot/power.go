package snackbot

import (
	"context"
	"fmt"
)

// PowerManager toggles radio power saving.
type PowerManager interface {
	SetPowerSave(enabled bool) error
}

// IWPowerManager sets power saving with `iw dev <iface> set power_save`.
type IWPowerManager struct {
	iface string
	run   runFunc
}

// NewIWPowerManager returns a power manager for iface.
func NewIWPowerManager(iface string) *IWPowerManager {
	return &IWPowerManager{iface: iface, run: runCommand}
}

// SetPowerSave implements PowerManager.
func (p *IWPowerManager) SetPowerSave(enabled bool) error {
	state := "off"
	if enabled {
		state = "on"
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if _, err := p.run(ctx, "iw", "dev", p.iface, "set", "power_save", state); err != nil {
		return fmt.Errorf("iw set power_save %s on %s: %w", state, p.iface, err)
	}
	return nil
}

// NoopPowerManager accepts every request and does nothing.
type NoopPowerManager struct{}

// SetPowerSave implements PowerManager.
func (NoopPowerManager) SetPowerSave(bool) error { return nil }
