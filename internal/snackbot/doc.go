// Package snackbot is the dispenser firmware: boot diagnostics and the motor
// pulse that turns a dispense command into snacks.
//
// # Event loop
//
// A Device runs a single goroutine (Run) that owns the motor pin. Commands
// arriving from the bus and timer expirations are posted into the loop as
// events; nothing else touches the pin, so no lock guards it.
//
// # Dispense
//
//	on dispense(seconds):
//	    pin ← 1
//	    after seconds: pin ← 0
//
// Each dispense arms its own off-timer and none is ever cancelled. Two
// overlapping dispenses therefore end at the earlier deadline: dispense(2)
// followed by dispense(5) stops the motor at t=2, and the second off-timer
// rewrites 0 at t=5.
package snackbot
