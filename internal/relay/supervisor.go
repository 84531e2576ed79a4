package relay

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultRestartDelay    = time.Second
	defaultMaxRestartDelay = 30 * time.Second

	// stableThreshold is how long a bridge must run before the restart
	// delay resets to its initial value.
	stableThreshold = time.Minute
)

// TransportFactory opens a new transport.
type TransportFactory func(ctx context.Context) (Transport, error)

// Supervisor keeps a bridge running. When the transport cannot be opened
// or fails, it waits and rebuilds it, doubling the delay up to a maximum.
type Supervisor struct {
	factory  TransportFactory
	opts     BridgeOptions
	delay    time.Duration
	maxDelay time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// NewSupervisor creates a supervisor. Zero delays use 1 s and 30 s.
func NewSupervisor(factory TransportFactory, opts BridgeOptions, delay, maxDelay time.Duration) *Supervisor {
	if delay <= 0 {
		delay = defaultRestartDelay
	}
	if maxDelay < delay {
		maxDelay = max(defaultMaxRestartDelay, delay)
	}
	return &Supervisor{
		factory:  factory,
		opts:     opts.withDefaults(),
		delay:    delay,
		maxDelay: maxDelay,
		sleep:    sleepContext,
	}
}

// Stats returns the counters shared by every bridge the supervisor runs.
func (s *Supervisor) Stats() *Stats {
	return s.opts.Stats
}

// Run supervises bridges until ctx is cancelled, then returns ctx.Err().
func (s *Supervisor) Run(ctx context.Context) error {
	log := s.opts.Logger
	bo := s.newBackOff()

	for {
		t, err := s.factory(ctx)
		if err == nil {
			log.Info("relay started")
			s.opts.Stats.setRunning(true)
			s.opts.Metrics.SetRelayConnected(true)

			started := time.Now()
			err = NewBridge(t, s.opts).Run(ctx)
			_ = t.Close()

			s.opts.Stats.setRunning(false)
			s.opts.Metrics.SetRelayConnected(false)

			if time.Since(started) >= stableThreshold {
				bo.Reset()
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Info("relay stopped")
			return ctxErr
		}

		delay := bo.NextBackOff()
		s.opts.Stats.recordRestart()
		s.opts.Metrics.ObserveRelayRestart()
		log.Warn("relay transport failed, restarting", "error", err, "delay", delay)

		if err := s.sleep(ctx, delay); err != nil {
			log.Info("relay stopped")
			return err
		}
	}
}

// newBackOff doubles from s.delay up to s.maxDelay without jitter; there
// is a single peer, so there is no herd to spread.
func (s *Supervisor) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.delay
	bo.MaxInterval = s.maxDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()
	return bo
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
