// Package mqtt connects Aerion Control to an MQTT broker.
//
// The broker is optional. When enabled it carries:
//   - relayed OPC-UA server events on aerion/ui/<event>
//   - probe results on aerion/probe/<device>/result (retained)
//   - probe requests on aerion/command/probe/<device>
//   - the service's online/offline status on aerion/system/status,
//     with a Last Will so a crash is visible to other clients
//
// The client reconnects with exponential backoff and restores its
// subscriptions after every reconnect.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllProbeCommands(), 1, handler)
package mqtt
