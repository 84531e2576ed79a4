package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Status is the lifecycle state of the supervised process.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusBackoff  Status = "backoff" // exited, waiting to be restarted
	StatusFailed   Status = "failed"
)

const (
	healthCheckTimeout = 5 * time.Second
	killWaitTimeout    = 5 * time.Second
	maxLineLength      = 4096
)

// Config describes the process to supervise and how.
type Config struct {
	Name    string
	Binary  string
	Args    []string
	WorkDir string

	// RestartOnFailure restarts the process after an unexpected exit.
	RestartOnFailure bool

	// RestartDelay is the first restart delay; it doubles per consecutive
	// attempt up to MaxRestartDelay.
	RestartDelay    time.Duration
	MaxRestartDelay time.Duration

	// StableThreshold is the runtime after which a crash no longer counts
	// against MaxRestartAttempts.
	StableThreshold time.Duration

	// MaxRestartAttempts is the number of consecutive restarts allowed.
	// Zero means unlimited.
	MaxRestartAttempts int

	// GracefulTimeout is the wait between SIGTERM and SIGKILL on Stop.
	GracefulTimeout time.Duration

	// HealthCheckFunc, if set, runs every HealthCheckInterval while the
	// process is up. UnhealthyThreshold consecutive failures kill it.
	HealthCheckFunc     func(ctx context.Context) error
	HealthCheckInterval time.Duration
	UnhealthyThreshold  int

	// OutputLines is how many recent stdout/stderr lines Stats reports.
	OutputLines int

	// OnStatusChange is called after every status transition.
	OnStatusChange func(Status)
}

// DefaultConfig returns a Config that restarts on failure with bounded
// attempts.
func DefaultConfig(name, binary string, args []string) Config {
	return Config{
		Name:                name,
		Binary:              binary,
		Args:                args,
		RestartOnFailure:    true,
		RestartDelay:        5 * time.Second,
		MaxRestartDelay:     5 * time.Minute,
		StableThreshold:     2 * time.Minute,
		MaxRestartAttempts:  10,
		GracefulTimeout:     10 * time.Second,
		HealthCheckInterval: 30 * time.Second,
		UnhealthyThreshold:  3,
		OutputLines:         50,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig(c.Name, c.Binary, c.Args)
	if c.RestartDelay <= 0 {
		c.RestartDelay = d.RestartDelay
	}
	if c.MaxRestartDelay <= 0 {
		c.MaxRestartDelay = d.MaxRestartDelay
	}
	c.MaxRestartDelay = max(c.MaxRestartDelay, c.RestartDelay)
	if c.StableThreshold <= 0 {
		c.StableThreshold = d.StableThreshold
	}
	if c.GracefulTimeout <= 0 {
		c.GracefulTimeout = d.GracefulTimeout
	}
	if c.HealthCheckInterval <= 0 {
		c.HealthCheckInterval = d.HealthCheckInterval
	}
	if c.UnhealthyThreshold <= 0 {
		c.UnhealthyThreshold = d.UnhealthyThreshold
	}
	if c.OutputLines <= 0 {
		c.OutputLines = d.OutputLines
	}
	return c
}

// Logger is the logging interface used by Manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager supervises one subprocess: it starts it, captures its output,
// health-checks it and restarts it with backoff until stopped.
type Manager struct {
	config Config
	logger Logger
	output *tail

	mu       sync.RWMutex
	cmd      *exec.Cmd
	status   Status
	restarts int
	backoff  *backoff.ExponentialBackOff
	lastErr  error
	started  time.Time
	stopping bool
	stopCh   chan struct{}
	done     chan struct{} // closed when supervise returns
}

// NewManager creates a stopped manager.
func NewManager(cfg Config) *Manager {
	cfg = cfg.withDefaults()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.RestartDelay
	bo.MaxInterval = cfg.MaxRestartDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.Reset()

	return &Manager{
		config:  cfg,
		logger:  noopLogger{},
		output:  newTail(cfg.OutputLines),
		status:  StatusStopped,
		backoff: bo,
	}
}

// SetLogger sets the logger. Process output is logged at Debug.
func (m *Manager) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Start launches the process and supervises it until Stop is called or
// ctx is cancelled. It returns once the first launch succeeded or failed.
func (m *Manager) Start(ctx context.Context) error {
	if m.config.Binary == "" {
		return ErrNoBinary
	}

	m.mu.Lock()
	if m.active() {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, m.config.Name)
	}
	m.status = StatusStarting
	m.stopping = false
	m.restarts = 0
	m.backoff.Reset()
	m.lastErr = nil
	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})
	m.mu.Unlock()
	m.notify(StatusStarting)

	if err := m.spawn(ctx); err != nil {
		m.fail(err)
		close(m.done)
		return err
	}

	go m.supervise(ctx)
	return nil
}

// Restart stops the process and starts it again.
func (m *Manager) Restart(ctx context.Context) error {
	if err := m.Stop(); err != nil {
		return err
	}
	return m.Start(ctx)
}

// active reports whether a supervise loop owns the process. Callers hold mu.
func (m *Manager) active() bool {
	if m.done == nil {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

func (m *Manager) spawn(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, m.config.Binary, m.config.Args...) //nolint:gosec // Binary comes from operator configuration
	cmd.Dir = m.config.WorkDir
	// Own process group, so Stop reaches anything the server forks.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Writers rather than pipes: Wait returns only after all output is
	// copied. WaitDelay bounds that if a child keeps the descriptors open.
	cmd.Stdout = &lineWriter{emit: func(l string) { m.record("stdout", l) }}
	cmd.Stderr = &lineWriter{emit: func(l string) { m.record("stderr", l) }}
	cmd.WaitDelay = killWaitTimeout

	if err := cmd.Start(); err != nil {
		return &startError{err: fmt.Errorf("starting %s: %w", m.config.Name, err)}
	}

	m.mu.Lock()
	m.cmd = cmd
	m.status = StatusRunning
	m.started = time.Now()
	m.mu.Unlock()

	m.logger.Info("process started", "name", m.config.Name, "pid", cmd.Process.Pid, "args", m.config.Args)
	m.notify(StatusRunning)
	return nil
}

func (m *Manager) record(stream, line string) {
	m.output.add(stream + ": " + line)
	m.logger.Debug("process output", "name", m.config.Name, "stream", stream, "line", line)
}

// lineWriter splits a byte stream into lines. A trailing partial line is
// held until the next newline.
type lineWriter struct {
	emit    func(string)
	partial []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	n := len(p)
	for {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			break
		}
		w.emit(string(append(w.partial, p[:i]...)))
		w.partial = w.partial[:0]
		p = p[i+1:]
	}
	w.partial = append(w.partial, p...)
	if len(w.partial) > maxLineLength {
		w.emit(string(w.partial))
		w.partial = w.partial[:0]
	}
	return n, nil
}

func (m *Manager) supervise(ctx context.Context) {
	defer close(m.done)

	for {
		m.mu.RLock()
		cmd := m.cmd
		m.mu.RUnlock()

		err := m.wait(ctx, cmd)

		m.mu.RLock()
		stopped := m.stopping || ctx.Err() != nil
		ranFor := time.Since(m.started)
		m.mu.RUnlock()

		if stopped {
			m.logger.Info("process stopped", "name", m.config.Name)
			m.setStatus(StatusStopped)
			return
		}

		m.logger.Warn("process exited unexpectedly", "name", m.config.Name, "error", err, "ran_for", ranFor)
		m.fail(err)

		if !m.config.RestartOnFailure || !m.respawn(ctx, ranFor) {
			return
		}
	}
}

// respawn waits out the backoff and starts the process again, retrying
// recoverable launch failures. It returns false when supervision ends.
func (m *Manager) respawn(ctx context.Context, ranFor time.Duration) bool {
	for {
		attempt, delay, ok := m.nextAttempt(ranFor)
		if !ok {
			m.logger.Error("giving up after max restart attempts", "name", m.config.Name, "attempts", attempt-1)
			return false
		}
		ranFor = 0

		m.logger.Info("restarting process", "name", m.config.Name, "attempt", attempt, "delay", delay)
		m.setStatus(StatusBackoff)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.setStatus(StatusStopped)
			return false
		case <-m.stopCh:
			timer.Stop()
			m.setStatus(StatusStopped)
			return false
		case <-timer.C:
		}

		err := m.spawn(ctx)
		if err == nil {
			return true
		}
		m.logger.Error("restart failed", "name", m.config.Name, "error", err)
		m.fail(err)
		if !IsRecoverable(err) {
			return false
		}
	}
}

// wait returns when the process exits. With a health check configured it
// kills the process after UnhealthyThreshold consecutive failures.
func (m *Manager) wait(ctx context.Context, cmd *exec.Cmd) error {
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	var tick <-chan time.Time
	if m.config.HealthCheckFunc != nil {
		t := time.NewTicker(m.config.HealthCheckInterval)
		defer t.Stop()
		tick = t.C
	}

	failures := 0
	for {
		select {
		case err := <-exited:
			return err
		case <-ctx.Done():
			// CommandContext kills the process.
			return <-exited
		case <-tick:
		}

		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := m.config.HealthCheckFunc(checkCtx)
		cancel()

		if err == nil {
			if failures > 0 {
				m.logger.Info("health check recovered", "name", m.config.Name, "after_failures", failures)
			}
			failures = 0
			continue
		}

		failures++
		m.logger.Warn("health check failed", "name", m.config.Name, "error", err, "consecutive", failures)
		if failures < m.config.UnhealthyThreshold {
			continue
		}

		m.logger.Error("killing unhealthy process", "name", m.config.Name, "failures", failures)
		_ = cmd.Process.Kill()
		select {
		case <-exited:
			return fmt.Errorf("killed after %d failed health checks: %w", failures, err)
		case <-time.After(killWaitTimeout):
			return errors.New("process survived kill after failed health checks")
		}
	}
}

// nextAttempt counts a restart and returns the delay before it. A run
// longer than StableThreshold resets the count and the backoff first. ok
// is false once MaxRestartAttempts is exceeded.
func (m *Manager) nextAttempt(ranFor time.Duration) (attempt int, delay time.Duration, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ranFor >= m.config.StableThreshold {
		m.restarts = 0
		m.backoff.Reset()
	}
	m.restarts++
	ok = m.config.MaxRestartAttempts <= 0 || m.restarts <= m.config.MaxRestartAttempts
	if ok {
		delay = m.backoff.NextBackOff()
	}
	return m.restarts, delay, ok
}

// Stop sends SIGTERM to the process group, escalates to SIGKILL after
// GracefulTimeout and waits for supervision to end. Stopping a stopped
// manager is a no-op.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.stopping && m.stopCh != nil {
		close(m.stopCh)
	}
	m.stopping = true
	cmd, done, status := m.cmd, m.done, m.status
	m.mu.Unlock()

	if done == nil {
		return nil
	}
	if (status != StatusRunning && status != StatusStarting) || cmd == nil || cmd.Process == nil {
		<-done
		return nil
	}

	pid := cmd.Process.Pid
	m.logger.Info("stopping process", "name", m.config.Name, "pid", pid)
	if err := signalGroup(pid, syscall.SIGTERM); err != nil {
		m.logger.Warn("SIGTERM failed", "name", m.config.Name, "error", err)
	}

	select {
	case <-done:
		return nil
	case <-time.After(m.config.GracefulTimeout):
		m.logger.Warn("process ignored SIGTERM, killing", "name", m.config.Name, "timeout", m.config.GracefulTimeout)
	}

	if err := signalGroup(pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("killing %s: %w", m.config.Name, err)
	}
	<-done
	return nil
}

// signalGroup signals the process group led by pid. An already gone group
// is not an error.
func signalGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	m.notify(s)
}

func (m *Manager) fail(err error) {
	m.mu.Lock()
	m.status = StatusFailed
	m.lastErr = err
	m.mu.Unlock()
	m.notify(StatusFailed)
}

func (m *Manager) notify(s Status) {
	if m.config.OnStatusChange != nil {
		m.config.OnStatusChange(s)
	}
}

// Status returns the current status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsRunning reports whether the process is up.
func (m *Manager) IsRunning() bool {
	return m.Status() == StatusRunning
}

// LastError returns the error of the last unexpected exit or failed launch.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// RestartCount returns the consecutive restart count.
func (m *Manager) RestartCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.restarts
}

// PID returns the process ID, or 0 when not running.
func (m *Manager) PID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status == StatusRunning && m.cmd != nil && m.cmd.Process != nil {
		return m.cmd.Process.Pid
	}
	return 0
}

// Stats is a snapshot of the supervised process.
type Stats struct {
	Name         string   `json:"name"`
	Status       Status   `json:"status"`
	PID          int      `json:"pid,omitempty"`
	UptimeSecs   float64  `json:"uptime_seconds,omitempty"`
	RestartCount int      `json:"restart_count"`
	LastError    string   `json:"last_error,omitempty"`
	RecentOutput []string `json:"recent_output,omitempty"`
}

// Stats returns a snapshot including the most recent output lines.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	s := Stats{
		Name:         m.config.Name,
		Status:       m.status,
		RestartCount: m.restarts,
	}
	if m.status == StatusRunning && m.cmd != nil && m.cmd.Process != nil {
		s.PID = m.cmd.Process.Pid
		s.UptimeSecs = time.Since(m.started).Seconds()
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()

	s.RecentOutput = m.output.lines()
	return s
}

// tail keeps the last n output lines.
type tail struct {
	mu   sync.Mutex
	buf  []string
	next int
	full bool
}

func newTail(n int) *tail {
	return &tail{buf: make([]string, n)}
}

func (t *tail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf[t.next] = line
	t.next = (t.next + 1) % len(t.buf)
	if t.next == 0 {
		t.full = true
	}
}

func (t *tail) lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.full {
		return append([]string(nil), t.buf[:t.next]...)
	}
	out := make([]string, 0, len(t.buf))
	out = append(out, t.buf[t.next:]...)
	return append(out, t.buf[:t.next]...)
}
