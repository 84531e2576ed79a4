// Package probe checks that a registered device is reachable and speaks
// the protocol its type promises.
//
// A Prober opens one TCP connection per check, performs a single
// request/response handshake and always shuts the connection down:
//
//   - Robot: sends "1;1;OPEN=ROBOT" and expects an answer starting with
//     "QOK" (case-insensitive).
//   - PLC: sends an SLMP 3E loopback frame and expects the two test bytes
//     echoed back with a zero end code.
//
// Device-side failures are never returned as errors. Probe returns an
// Outcome whose Reason names what went wrong and whose Message is the
// short diagnostic shown to operators.
//
// Service is the entry point for callers: it validates or looks up the
// device, probes it, and hands every Result to the registered observers
// (SQLite history, Prometheus, InfluxDB, MQTT).
package probe
