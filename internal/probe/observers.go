package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/aerion-control/internal/infrastructure/metrics"
	"github.com/nerrad567/aerion-control/internal/infrastructure/mqtt"
)

// NewMetricsObserver counts results and durations in Prometheus.
func NewMetricsObserver(m *metrics.Metrics) Observer {
	return ObserverFunc(func(_ context.Context, r Result) error {
		m.ObserveProbe(string(r.Type), r.Label(), r.Duration)
		return nil
	})
}

// PointWriter writes probe points to a time-series store.
// *influxdb.Client satisfies this interface.
type PointWriter interface {
	WriteProbeResult(deviceName, deviceType, outcome string, ok bool, duration time.Duration, ts time.Time)
}

// NewInfluxObserver writes one point per result. Writes are batched by the
// client, so the observer never fails.
func NewInfluxObserver(w PointWriter) Observer {
	return ObserverFunc(func(_ context.Context, r Result) error {
		w.WriteProbeResult(r.Device, string(r.Type), r.Label(), r.Outcome.OK(), r.Duration, r.StartedAt)
		return nil
	})
}

// Publisher publishes MQTT messages. *mqtt.Client satisfies this interface.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// NewMQTTObserver publishes each result as JSON, retained, on
// aerion/probe/<device>/result.
func NewMQTTObserver(p Publisher, qos byte) Observer {
	return ObserverFunc(func(_ context.Context, r Result) error {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshalling probe result: %w", err)
		}
		return p.Publish(mqtt.Topics{}.ProbeResult(r.Device), payload, qos, true)
	})
}

// CommandHandler returns an MQTT handler for aerion/command/probe/<device>.
// The payload is ignored; the result reaches subscribers through the
// observers like any other probe.
func (s *Service) CommandHandler(ctx context.Context) func(topic string, payload []byte) error {
	prefix := mqtt.Topics{}.ProbeCommand("")
	return func(topic string, _ []byte) error {
		name, ok := strings.CutPrefix(topic, prefix)
		if !ok || name == "" {
			return fmt.Errorf("probe command on unexpected topic %q", topic)
		}
		if _, err := s.CheckDevice(ctx, name); err != nil {
			return fmt.Errorf("probe command for %s: %w", name, err)
		}
		return nil
	}
}
