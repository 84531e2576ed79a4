package mqtt

import "fmt"

// TopicPrefix is the root of every Aerion Control topic.
const TopicPrefix = "aerion"

// Topics builds Aerion Control topic names.
//
//	topics := mqtt.Topics{}
//	topics.UIEvent("device_update")  // aerion/ui/device_update
//	topics.ProbeResult("plc-line-1") // aerion/probe/plc-line-1/result
type Topics struct{}

// UIEvent is where a relayed server event is republished.
func (Topics) UIEvent(event string) string {
	return fmt.Sprintf("%s/ui/%s", TopicPrefix, event)
}

// ProbeResult carries the latest probe result of a device.
func (Topics) ProbeResult(device string) string {
	return fmt.Sprintf("%s/probe/%s/result", TopicPrefix, device)
}

// ProbeCommand requests a probe of a registered device.
func (Topics) ProbeCommand(device string) string {
	return fmt.Sprintf("%s/command/probe/%s", TopicPrefix, device)
}

// SystemStatus carries the service's online/offline status.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// AllUIEvents matches every relayed event.
func (Topics) AllUIEvents() string {
	return TopicPrefix + "/ui/+"
}

// AllProbeResults matches every device's probe result.
func (Topics) AllProbeResults() string {
	return TopicPrefix + "/probe/+/result"
}

// AllProbeCommands matches probe requests for any device.
func (Topics) AllProbeCommands() string {
	return TopicPrefix + "/command/probe/+"
}

// AllTopics matches everything under the prefix.
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
