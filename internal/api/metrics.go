package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/aerion-control/internal/relay"
)

// SystemMetrics represents the complete system metrics response.
// Prometheus scrapes /metrics instead; this is the human-readable summary.
type SystemMetrics struct {
	Timestamp     string               `json:"timestamp"`
	Version       string               `json:"version"`
	UptimeSeconds int64                `json:"uptime_seconds"`
	Runtime       RuntimeMetrics       `json:"runtime"`
	WebSocket     WSMetrics            `json:"websocket"`
	MQTT          MQTTMetrics          `json:"mqtt"`
	Relay         *relay.StatsSnapshot `json:"relay,omitempty"`
	Devices       DeviceMetrics        `json:"devices"`
	Database      *DatabaseMetrics     `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int    `json:"connected_clients"`
	DroppedMessages  uint64 `json:"dropped_messages"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// DeviceMetrics contains device registry statistics.
type DeviceMetrics struct {
	Total     int            `json:"total"`
	ByType    map[string]int `json:"by_type"`
	UserNodes int            `json:"user_nodes"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns a summary of runtime and component statistics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
			DroppedMessages:  s.hub.Dropped(),
		},
		MQTT: MQTTMetrics{
			Connected: s.mqtt.IsConnected(),
		},
	}

	if s.relay != nil {
		snap := s.relay.Snapshot()
		metrics.Relay = &snap
	}

	regStats := s.registry.GetStats()
	metrics.Devices = DeviceMetrics{
		Total:     regStats.TotalDevices,
		ByType:    make(map[string]int, len(regStats.ByType)),
		UserNodes: regStats.UserNodes,
	}
	for t, count := range regStats.ByType {
		metrics.Devices.ByType[string(t)] = count
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
