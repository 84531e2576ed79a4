// Package relay bridges notifications from the OPC-UA server process to
// in-process subscribers.
//
// The server sends each notification as a ZeroMQ request and waits for a
// reply before sending the next one. The Bridge is the replier: every
// turn receives one message, classifies it by its leading bytes,
// republishes it if the category is known, and replies "OK" exactly
// once. Unrecognised or non-UTF-8 messages are acknowledged and dropped
// so the session never stalls.
//
//	{"device_update"...  -> event device_update
//	{"server_update"...  -> event server_update
//	{"clear_devices"...  -> event clear_devices
//
// Subscribers (WebSocket clients, MQTT, InfluxDB, channels) receive the
// verbatim message text. A subscriber that fails is logged and counted;
// it never stops the loop. Only transport failures end Bridge.Run, and
// the Supervisor rebuilds the transport after a backoff delay.
package relay
