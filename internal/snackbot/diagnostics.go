package snackbot

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Diagnostics reports the network identity logged at boot.
type Diagnostics interface {
	MACAddress() (string, error)
	SSID() (string, error)
	RSSI() (int, error)
}

// commandTimeout bounds the external tools queried for diagnostics and power.
const commandTimeout = 2 * time.Second

// defaultWirelessPath is the kernel's wireless statistics table.
const defaultWirelessPath = "/proc/net/wireless"

// ErrNoWirelessStats is returned when the interface has no row in
// /proc/net/wireless (not associated, or not a wireless interface).
var ErrNoWirelessStats = errors.New("no wireless statistics for interface")

// runFunc runs an external command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// LinuxDiagnostics reads diagnostics for one interface from the Linux host.
type LinuxDiagnostics struct {
	iface        string
	wirelessPath string
	run          runFunc
}

// NewLinuxDiagnostics returns diagnostics for iface, e.g. "wlan0".
func NewLinuxDiagnostics(iface string) *LinuxDiagnostics {
	return &LinuxDiagnostics{
		iface:        iface,
		wirelessPath: defaultWirelessPath,
		run:          runCommand,
	}
}

// MACAddress returns the interface's hardware address.
func (l *LinuxDiagnostics) MACAddress() (string, error) {
	ifi, err := net.InterfaceByName(l.iface)
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", l.iface, err)
	}
	return ifi.HardwareAddr.String(), nil
}

// SSID returns the network the interface is associated with, via iwgetid.
func (l *LinuxDiagnostics) SSID() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	out, err := l.run(ctx, "iwgetid", l.iface, "-r")
	if err != nil {
		return "", fmt.Errorf("iwgetid %s: %w", l.iface, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// RSSI returns the signal level in dBm from /proc/net/wireless.
func (l *LinuxDiagnostics) RSSI() (int, error) {
	data, err := os.ReadFile(l.wirelessPath)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", l.wirelessPath, err)
	}
	return parseWirelessLevel(data, l.iface)
}

// parseWirelessLevel extracts the signal level column for iface.
//
// The table has two header lines followed by rows like:
//
//	wlan0: 0000   70.  -40.  -256        0      0      0      0      0        0
func parseWirelessLevel(data []byte, iface string) (int, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		name, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(name) != iface {
			continue
		}

		fields := strings.Fields(rest)
		if len(fields) < 3 {
			return 0, fmt.Errorf("malformed wireless row for %s: %q", iface, scanner.Text())
		}
		level, err := strconv.ParseFloat(strings.TrimSuffix(fields[2], "."), 64)
		if err != nil {
			return 0, fmt.Errorf("parsing signal level %q: %w", fields[2], err)
		}
		return int(level), nil
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scanning wireless table: %w", err)
	}
	return 0, fmt.Errorf("%w: %s", ErrNoWirelessStats, iface)
}

// StaticDiagnostics reports fixed values. Used in simulation mode.
type StaticDiagnostics struct {
	MAC      string
	Network  string
	Strength int
}

func (s StaticDiagnostics) MACAddress() (string, error) { return s.MAC, nil }
func (s StaticDiagnostics) SSID() (string, error)       { return s.Network, nil }
func (s StaticDiagnostics) RSSI() (int, error)          { return s.Strength, nil }
