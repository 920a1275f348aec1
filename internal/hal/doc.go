// Package hal is the hardware abstraction for the dispenser's digital output pin.
//
// The device talks to its motor through the Pin interface. Two implementations
// exist:
//   - a periph.io GPIO pin, compiled on linux/arm and linux/arm64 unless the
//     nogpio build tag is set
//   - MemoryPin, which records every write and backs tests and simulation
//
// # Usage
//
//	pin, err := hal.Open("GPIO9")
//	if err != nil {
//	    return err
//	}
//	if err := pin.Configure(hal.DigitalOut); err != nil {
//	    return err
//	}
//	pin.Write(hal.Low)
package hal
