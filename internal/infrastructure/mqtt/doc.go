// Package mqtt provides the broker connection shared by the Chompy agent and device.
//
// The broker sits between the HTTP-facing agent and the dispenser:
//
//	HTTP client → agent ↔ MQTT broker ↔ device → motor pin
//
// This package manages:
//   - Connection with auto-reconnect
//   - Retained presence on chompy/status/{client_id} with an offline Last Will
//   - Publishing and subscriptions (restored on reconnect)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.Command("chompy-01", mqtt.CommandDispense), 0,
//	    func(topic string, payload []byte) error {
//	        return handle(payload)
//	    })
package mqtt
