package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Address family policies accepted by probe.address_family.
const (
	FamilyAny  = "any"
	FamilyIPv4 = "ipv4"
	FamilyIPv6 = "ipv6"
)

// Relay socket modes accepted by relay.mode.
const (
	RelayModeDial = "dial"
	RelayModeBind = "bind"
)

// Config is the root configuration structure for Aerion Control.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Registry  RegistryConfig  `yaml:"registry"`
	Probe     ProbeConfig     `yaml:"probe"`
	Relay     RelayConfig     `yaml:"relay"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RegistryConfig locates the JSON documents shared with the OPC-UA server.
// Relative file names are resolved against DataDir.
type RegistryConfig struct {
	DataDir     string `yaml:"data_dir"`
	ClientsFile string `yaml:"clients_file"`
	ServerFile  string `yaml:"server_file"`
}

// ClientsPath returns the absolute location of the device registry document.
func (r RegistryConfig) ClientsPath() string {
	return resolve(r.DataDir, r.ClientsFile)
}

// ServerPath returns the absolute location of the server settings document.
func (r RegistryConfig) ServerPath() string {
	return resolve(r.DataDir, r.ServerFile)
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// ProbeConfig contains device connectivity probe settings.
type ProbeConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`

	// AddressFamily restricts which resolved address is dialled:
	// "any", "ipv4" or "ipv6".
	AddressFamily string `yaml:"address_family"`

	// AddressFallback allows the first resolved address to be used when
	// no address of the requested family exists.
	AddressFallback bool `yaml:"address_fallback"`

	// StrictShutdown reports a failed connection shutdown as a probe
	// failure even when the handshake itself succeeded.
	StrictShutdown bool `yaml:"strict_shutdown"`

	// MaxConcurrent bounds the number of devices probed at once by a sweep.
	MaxConcurrent int `yaml:"max_concurrent"`

	// SweepInterval runs a probe of every registered device periodically.
	// Zero disables periodic sweeps.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// HistoryRetentionDays is how long probe results are kept in SQLite.
	HistoryRetentionDays int `yaml:"history_retention_days"`
}

// RelayConfig contains event relay bridge settings.
type RelayConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`

	// Mode is "dial" when the OPC-UA server binds its request socket
	// (the default deployment) or "bind" when it dials us.
	Mode string `yaml:"mode"`

	RestartDelay    time.Duration `yaml:"restart_delay"`
	MaxRestartDelay time.Duration `yaml:"max_restart_delay"`

	// PublishMQTT republishes relayed events on the MQTT broker.
	PublishMQTT bool `yaml:"publish_mqtt"`
}

// ServerConfig contains settings for supervising the OPC-UA server process.
type ServerConfig struct {
	// Managed indicates whether Aerion Control starts and restarts the
	// OPC-UA server. If false the server is expected to run externally.
	Managed bool `yaml:"managed"`

	Binary  string   `yaml:"binary"`
	Args    []string `yaml:"args"`
	WorkDir string   `yaml:"work_dir"`

	// Host is dialled by the health check on the port read from the
	// server settings document.
	Host string `yaml:"host"`

	RestartOnFailure    bool          `yaml:"restart_on_failure"`
	RestartDelaySeconds int           `yaml:"restart_delay_seconds"`
	MaxRestartAttempts  int           `yaml:"max_restart_attempts"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: AERION_SECTION_KEY
// For example: AERION_DATABASE_PATH, AERION_RELAY_ENDPOINT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied. It is used when no configuration file exists.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// defaultDataDir mirrors where the OPC-UA server looks for its documents.
func defaultDataDir() string {
	if dir := os.Getenv("APPDATA"); dir != "" {
		return filepath.Join(dir, "Aerion OPC-UA Server")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".aerionuaserver")
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			DataDir:     defaultDataDir(),
			ClientsFile: "clients.json",
			ServerFile:  "server.json",
		},
		Probe: ProbeConfig{
			ConnectTimeout:       2 * time.Second,
			ReadTimeout:          2 * time.Second,
			WriteTimeout:         2 * time.Second,
			AddressFamily:        FamilyAny,
			AddressFallback:      true,
			MaxConcurrent:        8,
			HistoryRetentionDays: 30,
		},
		Relay: RelayConfig{
			Enabled:         true,
			Endpoint:        "tcp://localhost:5555",
			Mode:            RelayModeDial,
			RestartDelay:    time.Second,
			MaxRestartDelay: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:                "127.0.0.1",
			RestartOnFailure:    true,
			RestartDelaySeconds: 5,
			MaxRestartAttempts:  10,
			HealthCheckInterval: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:        "./data/aerion.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "aerion-control",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8480,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/aerion.log",
				MaxSize:    1,
				MaxBackups: 5,
				MaxAge:     30,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: AERION_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Registry
	if v := os.Getenv("AERION_DATA_DIR"); v != "" {
		cfg.Registry.DataDir = v
	}

	// Database
	if v := os.Getenv("AERION_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Relay
	if v := os.Getenv("AERION_RELAY_ENDPOINT"); v != "" {
		cfg.Relay.Endpoint = v
	}

	// Server
	if v := os.Getenv("AERION_SERVER_BINARY"); v != "" {
		cfg.Server.Binary = v
	}

	// MQTT
	if v := os.Getenv("AERION_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("AERION_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("AERION_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("AERION_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("AERION_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Registry validation
	if c.Registry.DataDir == "" {
		errs = append(errs, "registry.data_dir is required")
	}
	if c.Registry.ClientsFile == "" {
		errs = append(errs, "registry.clients_file is required")
	}
	if c.Registry.ServerFile == "" {
		errs = append(errs, "registry.server_file is required")
	}

	// Probe validation
	if c.Probe.ConnectTimeout <= 0 || c.Probe.ReadTimeout <= 0 || c.Probe.WriteTimeout <= 0 {
		errs = append(errs, "probe timeouts must be positive")
	}
	switch c.Probe.AddressFamily {
	case FamilyAny, FamilyIPv4, FamilyIPv6:
	default:
		errs = append(errs, "probe.address_family must be any, ipv4, or ipv6")
	}
	if c.Probe.MaxConcurrent < 1 {
		errs = append(errs, "probe.max_concurrent must be at least 1")
	}
	if c.Probe.SweepInterval < 0 {
		errs = append(errs, "probe.sweep_interval must not be negative")
	}

	// Relay validation
	if c.Relay.Enabled {
		if c.Relay.Endpoint == "" {
			errs = append(errs, "relay.endpoint is required when relay is enabled")
		}
		if c.Relay.Mode != RelayModeDial && c.Relay.Mode != RelayModeBind {
			errs = append(errs, "relay.mode must be dial or bind")
		}
	}

	// Server validation
	if c.Server.Managed && c.Server.Binary == "" {
		errs = append(errs, "server.binary is required when server.managed is true")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Logging validation
	if c.Logging.Output == "file" && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
