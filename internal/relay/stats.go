package relay

import (
	"sync"
	"time"
)

// Stats accumulates relay counters. It is safe for concurrent use.
type Stats struct {
	mu               sync.RWMutex
	running          bool
	turns            uint64
	categories       map[Category]uint64
	deliveryFailures uint64
	restarts         uint64
	lastMessageAt    time.Time
}

// NewStats creates empty counters.
func NewStats() *Stats {
	return &Stats{categories: make(map[Category]uint64)}
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Running          bool              `json:"running"`
	Turns            uint64            `json:"turns"`
	Categories       map[string]uint64 `json:"categories"`
	DeliveryFailures uint64            `json:"delivery_failures"`
	Restarts         uint64            `json:"restarts"`
	LastMessageAt    *time.Time        `json:"last_message_at,omitempty"`
}

// Snapshot returns a copy of the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StatsSnapshot{
		Running:          s.running,
		Turns:            s.turns,
		Categories:       make(map[string]uint64, len(s.categories)),
		DeliveryFailures: s.deliveryFailures,
		Restarts:         s.restarts,
	}
	for c, n := range s.categories {
		snap.Categories[string(c)] = n
	}
	if !s.lastMessageAt.IsZero() {
		t := s.lastMessageAt
		snap.LastMessageAt = &t
	}
	return snap
}

func (s *Stats) recordTurn(c Category, at time.Time) {
	s.mu.Lock()
	s.turns++
	s.categories[c]++
	s.lastMessageAt = at
	s.mu.Unlock()
}

func (s *Stats) recordDeliveryFailure() {
	s.mu.Lock()
	s.deliveryFailures++
	s.mu.Unlock()
}

func (s *Stats) recordRestart() {
	s.mu.Lock()
	s.restarts++
	s.mu.Unlock()
}

func (s *Stats) setRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}
