package relay

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Logger defines the logging interface used by the relay.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Metrics receives relay counters. *metrics.Metrics satisfies it.
type Metrics interface {
	ObserveRelayMessage(category string)
	ObserveDeliveryFailure(subscriber string)
	ObserveRelayRestart()
	SetRelayConnected(connected bool)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRelayMessage(string)    {}
func (noopMetrics) ObserveDeliveryFailure(string) {}
func (noopMetrics) ObserveRelayRestart()          {}
func (noopMetrics) SetRelayConnected(bool)        {}

// Publisher receives classified events. Publish must not block on slow
// subscribers: the server waits for the reply.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// BridgeOptions holds the collaborators of a bridge. Every field is optional.
type BridgeOptions struct {
	Publisher Publisher
	Stats     *Stats
	Metrics   Metrics
	Logger    Logger
}

func (o BridgeOptions) withDefaults() BridgeOptions {
	if o.Stats == nil {
		o.Stats = NewStats()
	}
	if o.Metrics == nil {
		o.Metrics = noopMetrics{}
	}
	if o.Logger == nil {
		o.Logger = noopLogger{}
	}
	return o
}

// Bridge runs relay turns over one transport.
type Bridge struct {
	transport Transport
	opts      BridgeOptions
	now       func() time.Time
}

// NewBridge creates a bridge over t.
func NewBridge(t Transport, opts BridgeOptions) *Bridge {
	return &Bridge{transport: t, opts: opts.withDefaults(), now: time.Now}
}

// Stats returns the bridge counters.
func (b *Bridge) Stats() *Stats {
	return b.opts.Stats
}

// Turn performs one relay turn: receive one message, classify it,
// republish it if its category is known, then reply "OK". The reply is
// sent exactly once per received message, whatever the content.
// Only transport failures are returned.
func (b *Bridge) Turn(ctx context.Context) error {
	msg, err := b.transport.Recv(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReceive, err)
	}

	received := b.now()
	category := Classify(msg)
	b.opts.Stats.recordTurn(category, received)
	b.opts.Metrics.ObserveRelayMessage(string(category))

	if category.Known() {
		if b.opts.Publisher != nil {
			b.opts.Publisher.Publish(ctx, Event{
				Name:       string(category),
				Message:    string(msg),
				ReceivedAt: received,
			})
		}
	} else {
		b.opts.Logger.Debug("relay message not recognised", "bytes", len(msg))
	}

	if err := b.transport.Send(ctx, []byte(Ack)); err != nil {
		return fmt.Errorf("%w: %w", ErrReply, err)
	}
	return nil
}

// Run loops turns until ctx is cancelled or the transport fails.
// Cancellation is checked between turns and also closes the transport so
// a pending receive returns; Run then reports ctx.Err().
func (b *Bridge) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = b.transport.Close()
	})
	defer stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.Turn(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
	}
}

// IsTransportError reports whether err came from the transport.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrReceive) || errors.Is(err, ErrReply)
}
