// Package api implements the Chompy agent's HTTP gateway.
//
// This package provides:
//   - GET|POST /status    device connectivity as {"online":bool}
//   - GET|POST /dispense  forward a dispense command (?amount=seconds)
//   - GET /               a static landing page
//   - everything else     404 "Not found"
//
// # Architecture
//
// The server sits between HTTP callers (the chompy front end, chompyctl,
// curl) and the MQTT bus. Presence comes from the device's retained status
// topic; dispense commands are published and the handler returns without
// waiting for the device.
//
// # Errors
//
// Route handlers return (Response, error). A single translation layer turns
// any returned error into a 500 whose body is the error text, and the
// recovery middleware does the same for panics. No other status is derived
// from an error.
package api
