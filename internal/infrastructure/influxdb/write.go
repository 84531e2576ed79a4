package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementProbe = "device_probe"
	MeasurementRelay = "relay_event"
)

// WriteProbeResult records one probe. outcome is "ok" or the failure reason.
func (c *Client) WriteProbeResult(deviceName, deviceType, outcome string, ok bool, duration time.Duration, ts time.Time) {
	c.writePoint(probePoint(deviceName, deviceType, outcome, ok, duration, ts))
}

// WriteRelayEvent records one event republished by the relay.
func (c *Client) WriteRelayEvent(event string, size int, ts time.Time) {
	c.writePoint(relayPoint(event, size, ts))
}

// WritePointWithTime writes an arbitrary point.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	c.writePoint(write.NewPoint(measurement, tags, fields, ts))
}

func (c *Client) writePoint(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}

func probePoint(deviceName, deviceType, outcome string, ok bool, duration time.Duration, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementProbe,
		map[string]string{
			"device":      deviceName,
			"device_type": deviceType,
			"outcome":     outcome,
		},
		map[string]any{
			"ok":          ok,
			"duration_ms": float64(duration) / float64(time.Millisecond),
		},
		ts,
	)
}

func relayPoint(event string, size int, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementRelay,
		map[string]string{"event": event},
		map[string]any{"bytes": size},
		ts,
	)
}
