package relay

import "errors"

// Sentinel errors for relay operations.
var (
	// ErrInvalidCommand is returned when a command payload cannot be decoded.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrDispatchFailed is returned when a command could not be handed to the broker.
	ErrDispatchFailed = errors.New("dispatching command")
)
