// Package influxdb records probe results and relay traffic as time series.
//
// InfluxDB is optional. Writes are non-blocking and batched by the
// underlying client; write errors arrive asynchronously through the
// callback set with SetOnError.
//
// Measurements:
//
//	device_probe  tags: device, device_type, outcome
//	              fields: ok (bool), duration_ms (float)
//	relay_event   tags: event
//	              fields: bytes (int)
package influxdb
