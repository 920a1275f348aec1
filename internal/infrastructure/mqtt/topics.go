package mqtt

import "fmt"

// TopicPrefix is the root of every Chompy topic.
//
// Scheme: chompy/{category}/{client_or_device_id}[/{command}]
const TopicPrefix = "chompy"

// Command names carried on the command topic.
const (
	// CommandDispense runs the motor for the number of seconds in the payload.
	CommandDispense = "dispense"
)

// Topics provides builders for Chompy MQTT topics.
// Using these helpers ensures the agent and device agree on naming.
//
//	topics := mqtt.Topics{}
//	topics.Command("chompy-01", mqtt.CommandDispense)
//	// Returns: "chompy/command/chompy-01/dispense"
type Topics struct{}

// Status returns the retained presence topic for a client.
// The broker publishes the client's Last Will here if it drops off.
//
// Example: chompy/status/chompy-01
func (Topics) Status(clientID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefix, clientID)
}

// Command returns the topic a device listens on for a named command.
//
// Example: chompy/command/chompy-01/dispense
func (Topics) Command(deviceID, command string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, deviceID, command)
}

// Log returns the topic a device publishes its log lines to.
//
// Example: chompy/log/chompy-01
func (Topics) Log(deviceID string) string {
	return fmt.Sprintf("%s/log/%s", TopicPrefix, deviceID)
}
