package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: integration disabled")

	// ErrConnectionFailed wraps ping and health failures during Connect.
	ErrConnectionFailed = errors.New("influxdb: unable to reach server")

	// ErrNotConnected is returned by operations on a closed or never-connected client.
	ErrNotConnected = errors.New("influxdb: client not connected")
)
