package snackbot

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/chompy/internal/hal"
	"github.com/nerrad567/chompy/internal/relay"
)

// manualClock is a Scheduler driven by Advance. Callbacks run on the
// caller's goroutine, standing in for the event loop.
type manualClock struct {
	now    time.Duration
	seq    int
	timers []manualTimer
}

type manualTimer struct {
	at  time.Duration
	seq int
	fn  func()
}

func (c *manualClock) Wakeup(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	c.seq++
	c.timers = append(c.timers, manualTimer{at: c.now + d, seq: c.seq, fn: fn})
}

// Advance moves time forward by d, firing due callbacks in deadline order.
func (c *manualClock) Advance(d time.Duration) {
	target := c.now + d
	for {
		sort.Slice(c.timers, func(i, j int) bool {
			if c.timers[i].at == c.timers[j].at {
				return c.timers[i].seq < c.timers[j].seq
			}
			return c.timers[i].at < c.timers[j].at
		})
		if len(c.timers) == 0 || c.timers[0].at > target {
			break
		}
		next := c.timers[0]
		c.timers = c.timers[1:]
		c.now = next.at
		next.fn()
	}
	c.now = target
}

type timedWrite struct {
	at    time.Duration
	level hal.Level
}

type powerRecorder struct {
	calls []bool
	err   error
}

func (p *powerRecorder) SetPowerSave(enabled bool) error {
	p.calls = append(p.calls, enabled)
	return p.err
}

type failingDiagnostics struct{}

func (failingDiagnostics) MACAddress() (string, error) { return "", errors.New("no interface") }
func (failingDiagnostics) SSID() (string, error)       { return "", errors.New("no interface") }
func (failingDiagnostics) RSSI() (int, error)          { return 0, errors.New("no interface") }

type testRig struct {
	device *Device
	pin    *hal.MemoryPin
	clock  *manualClock
	power  *powerRecorder
	logs   *bytes.Buffer
	writes []timedWrite
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	rig := &testRig{
		pin:   hal.NewMemoryPin("GPIO9"),
		clock: &manualClock{},
		power: &powerRecorder{},
		logs:  &bytes.Buffer{},
	}
	rig.pin.OnWrite = func(l hal.Level) {
		rig.writes = append(rig.writes, timedWrite{at: rig.clock.now, level: l})
	}

	d, err := New(Options{
		Pin:         rig.pin,
		Diagnostics: StaticDiagnostics{MAC: "0c:2a:69:00:11:22", Network: "snacknet", Strength: -42},
		Power:       rig.power,
		PowerSave:   true,
		Scheduler:   rig.clock,
		Logger:      slog.New(slog.NewJSONHandler(rig.logs, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	rig.device = d
	return rig
}

func TestNew_RequiresPin(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Error("New() without pin expected error")
	}
}

func TestBoot(t *testing.T) {
	rig := newTestRig(t)

	if err := rig.device.Boot(); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}

	if !rig.pin.Configured() {
		t.Error("motor pin not configured")
	}
	if got := rig.pin.Writes(); !slices.Equal(got, []hal.Level{hal.Low}) {
		t.Errorf("writes after boot = %v, want exactly [0]", got)
	}
	if !slices.Equal(rig.power.calls, []bool{true}) {
		t.Errorf("power save calls = %v, want [true]", rig.power.calls)
	}

	logs := rig.logs.String()
	for _, want := range []string{
		`"msg":"Starting up"`,
		`"mac":"0c:2a:69:00:11:22"`,
		`"ssid":"snacknet"`,
		`"rssi":-42`,
	} {
		if !strings.Contains(logs, want) {
			t.Errorf("boot log missing %s", want)
		}
	}
	if strings.Index(logs, "Starting up") > strings.Index(logs, "Mac address") {
		t.Error("Starting up not logged first")
	}
}

func TestBoot_DiagnosticFailuresAreNotFatal(t *testing.T) {
	pin := hal.NewMemoryPin("GPIO9")
	var logs bytes.Buffer

	d, err := New(Options{
		Pin:         pin,
		Diagnostics: failingDiagnostics{},
		Power:       &powerRecorder{err: errors.New("iw missing")},
		Logger:      slog.New(slog.NewJSONHandler(&logs, nil)),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := d.Boot(); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	if pin.Level() != hal.Low || !pin.Configured() {
		t.Error("motor pin not reset")
	}
	if got := strings.Count(logs.String(), `"level":"WARN"`); got != 4 {
		t.Errorf("warnings = %d, want 4\n%s", got, logs.String())
	}
}

type brokenPin struct{ *hal.MemoryPin }

func (brokenPin) Configure(hal.Mode) error { return errors.New("gpio busy") }

func TestBoot_PinFailureIsFatal(t *testing.T) {
	d, err := New(Options{Pin: brokenPin{hal.NewMemoryPin("GPIO9")}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := d.Boot(); err == nil {
		t.Error("Boot() expected error")
	}
	if err := d.Run(context.Background()); !errors.Is(err, ErrNotBooted) {
		t.Errorf("Run() error = %v, want ErrNotBooted", err)
	}
}

func TestDispense_PulsesForRequestedDuration(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		offAt   time.Duration
	}{
		{name: "default half second", seconds: 0.5, offAt: 500 * time.Millisecond},
		{name: "two seconds", seconds: 2, offAt: 2 * time.Second},
		{name: "zero fires next turn", seconds: 0, offAt: 0},
		{name: "negative fires next turn", seconds: -1, offAt: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newTestRig(t)
			if err := rig.device.Boot(); err != nil {
				t.Fatalf("Boot() error = %v", err)
			}
			rig.writes = nil

			rig.device.handleDispense(relay.Command{ID: "c1", Amount: tt.seconds})

			if rig.pin.Level() != hal.High {
				t.Fatal("pin not driven high immediately")
			}

			rig.clock.Advance(10 * time.Second)

			want := []timedWrite{{at: 0, level: hal.High}, {at: tt.offAt, level: hal.Low}}
			if !slices.Equal(rig.writes, want) {
				t.Errorf("writes = %v, want %v", rig.writes, want)
			}
		})
	}
}

func TestDispense_OverlapFirstTimerWins(t *testing.T) {
	rig := newTestRig(t)
	if err := rig.device.Boot(); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	rig.writes = nil

	rig.device.handleDispense(relay.Command{Amount: 2.0})
	rig.clock.Advance(100 * time.Millisecond)
	rig.device.handleDispense(relay.Command{Amount: 5.0})

	rig.clock.Advance(1900 * time.Millisecond)
	if rig.pin.Level() != hal.Low {
		t.Fatal("motor still running at t=2s; first off-timer should have stopped it")
	}

	rig.clock.Advance(10 * time.Second)

	want := []timedWrite{
		{at: 0, level: hal.High},
		{at: 100 * time.Millisecond, level: hal.High},
		{at: 2 * time.Second, level: hal.Low},
		{at: 5100 * time.Millisecond, level: hal.Low},
	}
	if !slices.Equal(rig.writes, want) {
		t.Errorf("writes = %v, want %v", rig.writes, want)
	}
}

func TestDispense_LogsDuration(t *testing.T) {
	rig := newTestRig(t)
	if err := rig.device.Boot(); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}

	rig.device.handleDispense(relay.Command{ID: "abc", Amount: 1.25})

	logs := rig.logs.String()
	if !strings.Contains(logs, `"msg":"Dispensing"`) || !strings.Contains(logs, `"seconds":1.25`) {
		t.Errorf("dispense log missing: %s", logs)
	}
}

func TestRun_RealTimers(t *testing.T) {
	pin := hal.NewMemoryPin("GPIO9")
	levels := make(chan hal.Level, 8)
	pin.OnWrite = func(l hal.Level) { levels <- l }

	d, err := New(Options{Pin: pin})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := d.Boot(); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}
	<-levels // boot reset

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	if err := d.Dispense(relay.NewCommand(0.02)); err != nil {
		t.Fatalf("Dispense() error = %v", err)
	}

	for _, want := range []hal.Level{hal.High, hal.Low} {
		select {
		case got := <-levels:
			if got != want {
				t.Fatalf("pin = %s, want %s", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for pin %s", want)
		}
	}
}

func TestRun_ShutdownSwitchesMotorOff(t *testing.T) {
	pin := hal.NewMemoryPin("GPIO9")
	high := make(chan struct{}, 1)
	pin.OnWrite = func(l hal.Level) {
		if l == hal.High {
			high <- struct{}{}
		}
	}

	d, err := New(Options{Pin: pin})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := d.Boot(); err != nil {
		t.Fatalf("Boot() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- d.Run(ctx) }()

	if err := d.Dispense(relay.NewCommand(60)); err != nil {
		t.Fatalf("Dispense() error = %v", err)
	}
	select {
	case <-high:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for motor")
	}

	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if pin.Level() != hal.Low {
		t.Error("motor left running after shutdown")
	}
	if err := d.Dispense(relay.NewCommand(1)); !errors.Is(err, ErrStopped) {
		t.Errorf("Dispense() after stop error = %v, want ErrStopped", err)
	}
	if err := d.Run(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Run() after stop error = %v, want ErrStopped", err)
	}
}

func TestRun_SecondCall(t *testing.T) {
	tests := []struct {
		name      string
		stopFirst bool
		want      error
	}{
		{name: "while running", want: ErrAlreadyRunning},
		{name: "after stop", stopFirst: true, want: ErrStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(Options{Pin: hal.NewMemoryPin("GPIO9")})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if err := d.Boot(); err != nil {
				t.Fatalf("Boot() error = %v", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			errc := make(chan error, 1)
			go func() { errc <- d.Run(ctx) }()

			started := make(chan struct{})
			if err := d.post(func() { close(started) }); err != nil {
				t.Fatalf("post() error = %v", err)
			}
			<-started

			if tt.stopFirst {
				cancel()
				if err := <-errc; err != nil {
					t.Fatalf("Run() error = %v", err)
				}
			}

			second := make(chan error, 1)
			go func() { second <- d.Run(context.Background()) }()
			select {
			case err := <-second:
				if !errors.Is(err, tt.want) {
					t.Errorf("second Run() error = %v, want %v", err, tt.want)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("second Run() blocked")
			}
		})
	}
}
