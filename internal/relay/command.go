package relay

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Command is the dispense message sent from the agent to the device.
//
// Amount is the only field the device acts on. ID and IssuedAt exist so the
// agent's and the device's log lines for one dispense can be matched.
type Command struct {
	ID       string    `json:"id"`
	Amount   float64   `json:"amount"`
	IssuedAt time.Time `json:"issued_at"`
}

// NewCommand returns a dispense command for amount seconds with a fresh ID.
func NewCommand(amount float64) Command {
	return Command{
		ID:       uuid.NewString(),
		Amount:   amount,
		IssuedAt: time.Now().UTC(),
	}
}

// Duration converts Amount to a time.Duration, saturating at the
// representable range instead of wrapping.
func (c Command) Duration() time.Duration {
	ns := c.Amount * float64(time.Second)
	switch {
	case math.IsNaN(ns):
		return 0
	case ns >= math.MaxInt64:
		return math.MaxInt64
	case ns <= math.MinInt64:
		return math.MinInt64
	}
	return time.Duration(ns)
}

// Encode serialises the command for the wire.
func (c Command) Encode() ([]byte, error) {
	if math.IsNaN(c.Amount) || math.IsInf(c.Amount, 0) {
		return nil, fmt.Errorf("%w: amount %v is not a finite number", ErrInvalidCommand, c.Amount)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding command: %w", err)
	}
	return data, nil
}

// DecodeCommand parses a command payload.
//
// Only the amount is required; a missing ID is tolerated so a hand-typed
// `mosquitto_pub -m '{"amount":1}'` still dispenses.
func DecodeCommand(payload []byte) (Command, error) {
	var raw struct {
		ID       string    `json:"id"`
		Amount   *float64  `json:"amount"`
		IssuedAt time.Time `json:"issued_at"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if raw.Amount == nil {
		return Command{}, fmt.Errorf("%w: missing amount", ErrInvalidCommand)
	}
	return Command{ID: raw.ID, Amount: *raw.Amount, IssuedAt: raw.IssuedAt}, nil
}
