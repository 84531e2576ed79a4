package relay

import (
	"context"
	"slices"
	"sync"
)

// Subscriber receives republished events. Deliver must return quickly;
// slow subscribers queue internally and report ErrSubscriberFull.
type Subscriber interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// Broadcaster fans events out to subscribers. A failed delivery is
// logged and counted; it never reaches the bridge.
type Broadcaster struct {
	mu   sync.RWMutex
	subs []Subscriber

	stats   *Stats
	metrics Metrics
	logger  Logger
}

// NewBroadcaster creates a broadcaster. stats may be nil.
func NewBroadcaster(stats *Stats) *Broadcaster {
	if stats == nil {
		stats = NewStats()
	}
	return &Broadcaster{stats: stats, metrics: noopMetrics{}, logger: noopLogger{}}
}

// Stats returns the counters delivery failures are recorded in.
func (b *Broadcaster) Stats() *Stats {
	return b.stats
}

// SetLogger sets the logger for delivery failures.
func (b *Broadcaster) SetLogger(logger Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// SetMetrics sets the delivery failure counter.
func (b *Broadcaster) SetMetrics(m Metrics) {
	if m != nil {
		b.metrics = m
	}
}

// Add registers a subscriber. Names should be unique; Remove uses them.
func (b *Broadcaster) Add(s Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, s)
}

// Remove unregisters the subscriber with this name.
func (b *Broadcaster) Remove(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = slices.DeleteFunc(b.subs, func(s Subscriber) bool { return s.Name() == name })
}

// Len returns the number of subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers e to every subscriber in registration order.
func (b *Broadcaster) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	subs := slices.Clone(b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.Deliver(ctx, e); err != nil {
			b.stats.recordDeliveryFailure()
			b.metrics.ObserveDeliveryFailure(s.Name())
			b.logger.Warn("relay delivery failed", "subscriber", s.Name(), "event", e.Name, "error", err)
		}
	}
}
