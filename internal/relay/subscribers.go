package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/aerion-control/internal/infrastructure/mqtt"
)

const defaultQueueSize = 64

// ChannelSubscriber delivers events to a buffered channel, dropping them
// when the channel is full.
type ChannelSubscriber struct {
	name string
	ch   chan Event
}

// NewChannelSubscriber creates a subscriber with a buffer of size events.
func NewChannelSubscriber(name string, size int) *ChannelSubscriber {
	return &ChannelSubscriber{name: name, ch: make(chan Event, size)}
}

// Name implements Subscriber.
func (c *ChannelSubscriber) Name() string { return c.name }

// Events returns the receive side of the channel.
func (c *ChannelSubscriber) Events() <-chan Event { return c.ch }

// Deliver implements Subscriber.
func (c *ChannelSubscriber) Deliver(_ context.Context, e Event) error {
	select {
	case c.ch <- e:
		return nil
	default:
		return ErrSubscriberFull
	}
}

// MQTTPublisher publishes MQTT messages. *mqtt.Client satisfies it.
type MQTTPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MQTTSubscriber republishes events on aerion/ui/<event>. Events are
// queued and published by Run so a slow broker never delays a reply.
type MQTTSubscriber struct {
	client MQTTPublisher
	qos    byte
	queue  chan Event
	logger Logger
}

// NewMQTTSubscriber creates the subscriber. Call Run to start publishing.
func NewMQTTSubscriber(client MQTTPublisher, qos byte) *MQTTSubscriber {
	return &MQTTSubscriber{
		client: client,
		qos:    qos,
		queue:  make(chan Event, defaultQueueSize),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for publish failures.
func (m *MQTTSubscriber) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Name implements Subscriber.
func (m *MQTTSubscriber) Name() string { return "mqtt" }

// Deliver queues the event.
func (m *MQTTSubscriber) Deliver(_ context.Context, e Event) error {
	select {
	case m.queue <- e:
		return nil
	default:
		return ErrSubscriberFull
	}
}

// Run publishes queued events until ctx is cancelled.
func (m *MQTTSubscriber) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-m.queue:
			if err := m.publish(e); err != nil {
				m.logger.Warn("relay MQTT publish failed", "event", e.Name, "error", err)
			}
		}
	}
}

func (m *MQTTSubscriber) publish(e Event) error {
	payload, err := json.Marshal(e.Payload())
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	return m.client.Publish(mqtt.Topics{}.UIEvent(e.Name), payload, m.qos, false)
}

// EventWriter records relay events as time series. *influxdb.Client
// satisfies it.
type EventWriter interface {
	WriteRelayEvent(event string, size int, ts time.Time)
}

// InfluxSubscriber writes one point per event. The writer batches
// internally, so delivery never fails.
type InfluxSubscriber struct {
	writer EventWriter
}

// NewInfluxSubscriber creates the subscriber.
func NewInfluxSubscriber(w EventWriter) *InfluxSubscriber {
	return &InfluxSubscriber{writer: w}
}

// Name implements Subscriber.
func (s *InfluxSubscriber) Name() string { return "influxdb" }

// Deliver implements Subscriber.
func (s *InfluxSubscriber) Deliver(_ context.Context, e Event) error {
	s.writer.WriteRelayEvent(e.Name, len(e.Message), e.ReceivedAt)
	return nil
}
