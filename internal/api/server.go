package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/aerion-control/internal/audit"
	"github.com/nerrad567/aerion-control/internal/device"
	"github.com/nerrad567/aerion-control/internal/infrastructure/config"
	"github.com/nerrad567/aerion-control/internal/infrastructure/database"
	"github.com/nerrad567/aerion-control/internal/infrastructure/logging"
	"github.com/nerrad567/aerion-control/internal/infrastructure/mqtt"
	"github.com/nerrad567/aerion-control/internal/infrastructure/netif"
	"github.com/nerrad567/aerion-control/internal/probe"
	"github.com/nerrad567/aerion-control/internal/process"
	"github.com/nerrad567/aerion-control/internal/relay"
	"github.com/nerrad567/aerion-control/internal/settings"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// InterfaceLister lists host network interfaces. *netif.Lister satisfies it.
type InterfaceLister interface {
	List(ctx context.Context) ([]netif.Interface, error)
}

// RelayStats reports relay counters. *relay.Stats satisfies it.
type RelayStats interface {
	Snapshot() relay.StatsSnapshot
}

// ServerProcess is the supervised OPC-UA server. *process.Manager
// satisfies it.
type ServerProcess interface {
	Stats() process.Stats
	Restart(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Registry *device.Registry

	// Optional collaborators.
	Probes     *probe.Service
	History    probe.HistoryRepository
	Settings   *settings.Store
	Interfaces InterfaceLister
	Relay      RelayStats
	Server     ServerProcess
	MQTT       *mqtt.Client
	DB         *database.DB
	Audit      audit.Repository
	Metrics    http.Handler
	Hub        *Hub // If set, the server uses this hub instead of creating its own
	Version    string
}

// Server is the HTTP API server for Aerion Control.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	registry   *device.Registry
	probes     *probe.Service
	history    probe.HistoryRepository
	settings   *settings.Store
	interfaces InterfaceLister
	relay      RelayStats
	process    ServerProcess
	mqtt       *mqtt.Client
	db         *database.DB
	audit      audit.Repository
	metrics    http.Handler
	version    string
	startTime  time.Time

	hub         *Hub
	externalHub bool // true if hub was injected externally

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	ctx      context.Context    // lives from Start to Close
	cancel   context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Registry == nil {
		return nil, errors.New("device registry is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		registry:   deps.Registry,
		probes:     deps.Probes,
		history:    deps.History,
		settings:   deps.Settings,
		interfaces: deps.Interfaces,
		relay:      deps.Relay,
		process:    deps.Server,
		mqtt:       deps.MQTT,
		db:         deps.DB,
		audit:      deps.Audit,
		metrics:    deps.Metrics,
		version:    deps.Version,
		startTime:  time.Now(),
	}

	// The hub is usually created by main so the relay and the probe
	// service can publish into it before the server starts.
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}

	return s, nil
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the router. It is used by Start and by tests.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("api server already started")
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	if !s.externalHub {
		go s.hub.Run(s.ctx)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	srv := s.server
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", ln.Addr().String(),
				"cert", s.cfg.TLS.CertFile,
			)
			err = srv.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server, waiting up to 10 seconds
// for in-flight requests to complete.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	cancel := s.cancel
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}
