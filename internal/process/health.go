package process

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nerrad567/aerion-control/internal/infrastructure/config"
)

const (
	// ServerName identifies the OPC-UA server in logs and stats.
	ServerName = "opcua-server"

	healthDialTimeout = 3 * time.Second
)

// TCPHealthCheck returns a health check that succeeds when host accepts a
// TCP connection on the port returned by port. port is evaluated on every
// check.
func TCPHealthCheck(host string, port func() int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		addr := net.JoinHostPort(host, strconv.Itoa(port()))
		dialer := net.Dialer{Timeout: healthDialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("dialling %s: %w", addr, err)
		}
		return conn.Close()
	}
}

// ServerConfig builds the manager configuration for the OPC-UA server.
// port supplies the server's listening port for the health check,
// normally (*settings.Store).Port.
func ServerConfig(cfg config.ServerConfig, port func() int) Config {
	c := DefaultConfig(ServerName, cfg.Binary, cfg.Args)
	c.WorkDir = cfg.WorkDir
	c.RestartOnFailure = cfg.RestartOnFailure
	c.MaxRestartAttempts = cfg.MaxRestartAttempts
	if cfg.RestartDelaySeconds > 0 {
		c.RestartDelay = time.Duration(cfg.RestartDelaySeconds) * time.Second
	}
	if cfg.HealthCheckInterval > 0 {
		c.HealthCheckInterval = cfg.HealthCheckInterval
	}
	if port != nil {
		host := cfg.Host
		if host == "" {
			host = "127.0.0.1"
		}
		c.HealthCheckFunc = TCPHealthCheck(host, port)
	}
	return c
}
