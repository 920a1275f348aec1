package snackbot

import "errors"

// Sentinel errors for device operations.
var (
	// ErrNotBooted is returned by Run when Boot has not succeeded.
	ErrNotBooted = errors.New("device not booted")

	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("device loop already running")

	// ErrStopped is returned when an event is posted, or Run is called,
	// after the loop exited.
	ErrStopped = errors.New("device loop stopped")
)
