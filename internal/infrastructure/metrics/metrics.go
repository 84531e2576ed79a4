// Package metrics exposes Aerion Control's Prometheus metrics.
//
// A private prometheus.Registry carries the Go runtime and process
// collectors plus the domain metrics defined in Metrics. Handler serves
// them in the text exposition format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aerion"

// Metrics contains every domain metric.
type Metrics struct {
	ProbesTotal   *prometheus.CounterVec
	ProbeDuration *prometheus.HistogramVec

	RelayMessages         *prometheus.CounterVec
	RelayDeliveryFailures *prometheus.CounterVec
	RelayRestarts         prometheus.Counter
	RelayConnected        prometheus.Gauge

	DevicesRegistered prometheus.Gauge
	ServerRunning     prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		ProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "probe",
				Name:      "total",
				Help:      "Connectivity probes by device type and outcome (ok or failure reason)",
			},
			[]string{"type", "outcome"},
		),
		ProbeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "probe",
				Name:      "duration_seconds",
				Help:      "Connectivity probe duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2, 4, 6},
			},
			[]string{"type"},
		),
		RelayMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "relay",
				Name:      "messages_total",
				Help:      "Messages received from the OPC-UA server by category",
			},
			[]string{"category"},
		),
		RelayDeliveryFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "relay",
				Name:      "delivery_failures_total",
				Help:      "Events a subscriber failed to accept",
			},
			[]string{"subscriber"},
		),
		RelayRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "restarts_total",
			Help:      "Times the relay transport was rebuilt after a failure",
		}),
		RelayConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "connected",
			Help:      "1 while the relay loop is running",
		}),
		DevicesRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "devices",
			Help:      "Devices in the registry document",
		}),
		ServerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "running",
			Help:      "1 while the supervised OPC-UA server process is running",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ProbesTotal, m.ProbeDuration,
		m.RelayMessages, m.RelayDeliveryFailures, m.RelayRestarts, m.RelayConnected,
		m.DevicesRegistered, m.ServerRunning,
	}
}

// ObserveProbe records one probe. outcome is "ok" or the failure reason.
func (m *Metrics) ObserveProbe(deviceType, outcome string, d time.Duration) {
	m.ProbesTotal.WithLabelValues(deviceType, outcome).Inc()
	m.ProbeDuration.WithLabelValues(deviceType).Observe(d.Seconds())
}

// ObserveRelayMessage counts one relayed message.
func (m *Metrics) ObserveRelayMessage(category string) {
	m.RelayMessages.WithLabelValues(category).Inc()
}

// ObserveDeliveryFailure counts an event a subscriber rejected.
func (m *Metrics) ObserveDeliveryFailure(subscriber string) {
	m.RelayDeliveryFailures.WithLabelValues(subscriber).Inc()
}

// ObserveRelayRestart counts a rebuilt relay transport.
func (m *Metrics) ObserveRelayRestart() {
	m.RelayRestarts.Inc()
}

// SetRelayConnected flips the relay gauge.
func (m *Metrics) SetRelayConnected(connected bool) {
	m.RelayConnected.Set(boolGauge(connected))
}

// SetDevicesRegistered records the size of the registry document.
func (m *Metrics) SetDevicesRegistered(n int) {
	m.DevicesRegistered.Set(float64(n))
}

// SetServerRunning flips the server process gauge.
func (m *Metrics) SetServerRunning(running bool) {
	m.ServerRunning.Set(boolGauge(running))
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Registry owns the Prometheus registry and the domain metrics.
type Registry struct {
	prom    *prometheus.Registry
	Metrics *Metrics
}

// NewRegistry creates a registry with runtime collectors and domain metrics.
func NewRegistry() *Registry {
	prom := prometheus.NewRegistry()
	m := newMetrics()

	prom.MustRegister(m.collectors()...)
	prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{prom: prom, Metrics: m}
}

// PrometheusRegistry returns the underlying registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prom
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{})
}
