package snackbot

import "time"

// Scheduler arms one-shot deferred callbacks.
//
// Wakeup returns immediately; fn runs once, no earlier than d from now. A
// d of zero or less runs fn as soon as possible. Callbacks are never
// cancelled.
type Scheduler interface {
	Wakeup(d time.Duration, fn func())
}

// loopScheduler runs callbacks on the device event loop via time.AfterFunc.
type loopScheduler struct {
	post func(func()) error
}

func (s loopScheduler) Wakeup(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		// A timer that fires after the loop exited has nobody to run it.
		//nolint:errcheck // ErrStopped is the only error and is expected on shutdown
		s.post(fn)
	})
}
