package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/aerion-control/internal/device"
)

const defaultMaxConcurrent = 8

// Logger defines the logging interface used by the probe service.
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

// DeviceSource provides device snapshots. *device.Registry satisfies it.
type DeviceSource interface {
	GetDevice(ctx context.Context, name string) (*device.Record, error)
	ListDevices(ctx context.Context) []device.Record
}

// Observer receives every probe result.
type Observer interface {
	ObserveProbe(ctx context.Context, result Result) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, result Result) error

// ObserveProbe calls f.
func (f ObserverFunc) ObserveProbe(ctx context.Context, result Result) error {
	return f(ctx, result)
}

type namedObserver struct {
	name string
	Observer
}

// Service probes devices and publishes the results.
//
// All public methods are thread-safe.
type Service struct {
	prober        *Prober
	devices       DeviceSource
	maxConcurrent int

	mu        sync.RWMutex
	observers []namedObserver

	logger Logger
	now    func() time.Time
}

// NewService creates a probe service. maxConcurrent bounds CheckAll;
// values below 1 use the default of 8.
func NewService(prober *Prober, devices DeviceSource, maxConcurrent int) *Service {
	if maxConcurrent < 1 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Service{
		prober:        prober,
		devices:       devices,
		maxConcurrent: maxConcurrent,
		logger:        noopLogger{},
		now:           time.Now,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// AddObserver registers an observer. name identifies it in logs.
func (s *Service) AddObserver(name string, o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, namedObserver{name: name, Observer: o})
}

// Check probes an ad-hoc device record. Only the name is validated here,
// with failures wrapping device.ErrInvalidDevice; an unsupported type or
// a bad address is reported by the prober as a typed Outcome.
func (s *Service) Check(ctx context.Context, rec device.Record) (Result, error) {
	if err := device.ValidateName(rec.Name); err != nil {
		return Result{}, fmt.Errorf("%w: %w", device.ErrInvalidDevice, err)
	}
	return s.run(ctx, rec), nil
}

// CheckDevice probes a registered device by name.
func (s *Service) CheckDevice(ctx context.Context, name string) (Result, error) {
	rec, err := s.devices.GetDevice(ctx, name)
	if err != nil {
		return Result{}, err
	}
	return s.run(ctx, *rec), nil
}

// CheckAll probes every registered device, at most maxConcurrent at a
// time. Results keep registry order; an empty registry yields an empty
// slice.
func (s *Service) CheckAll(ctx context.Context) ([]Result, error) {
	recs := s.devices.ListDevices(ctx)

	results := make([]Result, len(recs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	for i, rec := range recs {
		g.Go(func() error {
			results[i] = s.run(gctx, rec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// RunSweeps probes every device each interval until ctx is cancelled.
func (s *Service) RunSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results, err := s.CheckAll(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("probe sweep failed", "error", err)
				}
				continue
			}
			failed := 0
			for _, r := range results {
				if !r.Outcome.OK() {
					failed++
				}
			}
			s.logger.Info("probe sweep complete", "devices", len(results), "failed", failed)
		}
	}
}

func (s *Service) run(ctx context.Context, rec device.Record) Result {
	started := s.now()
	outcome := s.prober.Probe(ctx, rec)

	result := Result{
		ID:        uuid.NewString(),
		Device:    rec.Name,
		Type:      rec.Type,
		Address:   rec.Address(),
		Outcome:   outcome,
		StartedAt: started.UTC(),
		Duration:  s.now().Sub(started),
	}

	if outcome.OK() {
		s.logger.Debug("probe succeeded", "device", rec.Name, "type", rec.Type, "duration", result.Duration)
	} else {
		s.logger.Info("probe failed",
			"device", rec.Name,
			"type", rec.Type,
			"reason", outcome.Reason,
			"detail", outcome.Detail,
		)
	}
	if outcome.ShutdownFailed {
		s.logger.Warn("connection shutdown failed", "device", rec.Name)
	}

	s.notify(ctx, result)
	return result
}

// notify hands the result to every observer. Failures are logged only.
func (s *Service) notify(ctx context.Context, result Result) {
	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()

	for _, o := range observers {
		if err := o.ObserveProbe(ctx, result); err != nil {
			s.logger.Warn("probe observer failed", "observer", o.name, "device", result.Device, "error", err)
		}
	}
}
