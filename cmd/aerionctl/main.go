// Aerion Control - device connectivity and OPC-UA server companion
//
// aerionctl manages the device registry shared with the Aerion OPC-UA
// server, probes robots and PLCs on demand or on a schedule, relays the
// server's UI notifications to WebSocket and MQTT subscribers, and can
// supervise the server process itself.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/aerion-control/migrations"

	"github.com/nerrad567/aerion-control/internal/api"
	"github.com/nerrad567/aerion-control/internal/audit"
	"github.com/nerrad567/aerion-control/internal/device"
	"github.com/nerrad567/aerion-control/internal/infrastructure/config"
	"github.com/nerrad567/aerion-control/internal/infrastructure/database"
	"github.com/nerrad567/aerion-control/internal/infrastructure/influxdb"
	"github.com/nerrad567/aerion-control/internal/infrastructure/logging"
	"github.com/nerrad567/aerion-control/internal/infrastructure/metrics"
	"github.com/nerrad567/aerion-control/internal/infrastructure/mqtt"
	"github.com/nerrad567/aerion-control/internal/infrastructure/netif"
	"github.com/nerrad567/aerion-control/internal/probe"
	"github.com/nerrad567/aerion-control/internal/process"
	"github.com/nerrad567/aerion-control/internal/relay"
	"github.com/nerrad567/aerion-control/internal/settings"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// registryGaugeInterval is how often the registered device gauge is refreshed.
const registryGaugeInterval = 30 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Aerion Control",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	defer log.Close()
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.ConfigFrom(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Device registry and server settings share the OPC-UA server's data directory
	registry := device.NewRegistry(device.NewJSONFileRepository(cfg.Registry.ClientsPath()))
	registry.SetLogger(log.Component("registry"))
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry loaded",
		"path", cfg.Registry.ClientsPath(),
		"devices", registry.GetDeviceCount(),
	)

	serverSettings := settings.NewStore(cfg.Registry.ServerPath())
	serverSettings.SetLogger(log.Component("settings"))

	promRegistry := metrics.NewRegistry()
	m := promRegistry.Metrics
	m.SetDevicesRegistered(registry.GetDeviceCount())

	// Probing
	probeCfg, err := probe.ConfigFrom(cfg.Probe)
	if err != nil {
		return fmt.Errorf("configuring probe: %w", err)
	}
	probes := probe.NewService(probe.NewProber(probeCfg), registry, cfg.Probe.MaxConcurrent)
	probes.SetLogger(log.Component("probe"))

	history := probe.NewSQLiteHistoryRepository(db.DB)
	probes.AddObserver("history", history)
	probes.AddObserver("metrics", probe.NewMetricsObserver(m))

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	probes.AddObserver("websocket", hub)

	broadcaster := relay.NewBroadcaster(relay.NewStats())
	broadcaster.SetLogger(log.Component("relay"))
	broadcaster.SetMetrics(m)
	broadcaster.Add(hub)

	// Optional MQTT
	var mqttClient *mqtt.Client
	var relayMQTT *relay.MQTTSubscriber
	if cfg.MQTT.Enabled {
		mqttClient, err = connectMQTT(cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()

		qos := mqttClient.QoS()
		probes.AddObserver("mqtt", probe.NewMQTTObserver(mqttClient, qos))
		if subErr := mqttClient.Subscribe(mqtt.Topics{}.AllProbeCommands(), qos, probes.CommandHandler(ctx)); subErr != nil {
			return fmt.Errorf("subscribing to probe commands: %w", subErr)
		}

		if cfg.Relay.PublishMQTT {
			relayMQTT = relay.NewMQTTSubscriber(mqttClient, qos)
			relayMQTT.SetLogger(log.Component("relay"))
			broadcaster.Add(relayMQTT)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Optional InfluxDB
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		probes.AddObserver("influxdb", probe.NewInfluxObserver(influxClient))
		broadcaster.Add(relay.NewInfluxSubscriber(influxClient))
	} else {
		log.Info("InfluxDB disabled")
	}

	// Supervised OPC-UA server
	var serverManager *process.Manager
	if cfg.Server.Managed {
		serverManager, err = startServer(ctx, cfg.Server, serverSettings, m, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("stopping OPC-UA server")
			if stopErr := serverManager.Stop(); stopErr != nil {
				log.Error("error stopping OPC-UA server", "error", stopErr)
			}
		}()
	}

	var supervisor *relay.Supervisor
	if cfg.Relay.Enabled {
		supervisor = relay.NewSupervisor(relay.ZMQFactory(cfg.Relay), relay.BridgeOptions{
			Publisher: broadcaster,
			Stats:     broadcaster.Stats(),
			Metrics:   m,
			Logger:    log.Component("relay"),
		}, cfg.Relay.RestartDelay, cfg.Relay.MaxRestartDelay)
	} else {
		log.Info("event relay disabled")
	}

	deps := api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Logger:     log,
		Registry:   registry,
		Probes:     probes,
		History:    history,
		Settings:   serverSettings,
		Interfaces: netif.NewLister(cfg.Probe.AddressFallback),
		MQTT:       mqttClient,
		DB:         db,
		Audit:      audit.NewSQLiteRepository(db.DB),
		Hub:        hub,
		Version:    version,
	}
	if supervisor != nil {
		deps.Relay = supervisor.Stats()
	}
	if serverManager != nil {
		deps.Server = serverManager
	}
	if cfg.Metrics.Enabled {
		deps.Metrics = promRegistry.Handler()
	}

	apiServer, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if supervisor != nil {
		g.Go(func() error {
			if runErr := supervisor.Run(gctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				return fmt.Errorf("event relay: %w", runErr)
			}
			return nil
		})
	}
	if relayMQTT != nil {
		g.Go(func() error {
			relayMQTT.Run(gctx)
			return nil
		})
	}
	if cfg.Probe.SweepInterval > 0 {
		g.Go(func() error {
			probes.RunSweeps(gctx, cfg.Probe.SweepInterval)
			return nil
		})
		log.Info("periodic probe sweeps enabled", "interval", cfg.Probe.SweepInterval)
	}
	if cfg.Probe.HistoryRetentionDays > 0 {
		retention := time.Duration(cfg.Probe.HistoryRetentionDays) * 24 * time.Hour
		g.Go(func() error {
			probe.RunPruner(gctx, history, retention, log)
			return nil
		})
	}
	g.Go(func() error {
		trackRegistrySize(gctx, registry, m, log)
		return nil
	})

	if startErr := apiServer.Start(gctx); startErr != nil {
		stop()
		_ = g.Wait()
		return fmt.Errorf("starting API server: %w", startErr)
	}
	log.Info("API server listening", "addr", apiServer.Addr())

	if err := healthCheck(ctx, db, mqttClient); err != nil {
		_ = apiServer.Close()
		stop()
		_ = g.Wait()
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-gctx.Done()
	log.Info("shutdown signal received, cleaning up")

	if closeErr := apiServer.Close(); closeErr != nil {
		log.Error("error closing API server", "error", closeErr)
	}
	runErr := g.Wait()

	log.Info("Aerion Control stopped")
	return runErr
}

// getConfigPath returns the configuration file path.
// Uses AERION_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("AERION_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}

// startServer launches the OPC-UA server under supervision. Its health
// check dials the port currently stored in the settings document.
func startServer(ctx context.Context, cfg config.ServerConfig, store *settings.Store, m *metrics.Metrics, log *logging.Logger) (*process.Manager, error) {
	pcfg := process.ServerConfig(cfg, store.Port)
	pcfg.OnStatusChange = func(s process.Status) {
		m.SetServerRunning(s == process.StatusRunning)
	}

	manager := process.NewManager(pcfg)
	manager.SetLogger(log.Component("opcua-server"))

	log.Info("starting OPC-UA server", "binary", cfg.Binary, "port", store.Port())
	if err := manager.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting OPC-UA server: %w", err)
	}
	log.Info("OPC-UA server started", "pid", manager.PID())
	return manager, nil
}

// trackRegistrySize keeps the registered device gauge current. The
// registry document can be edited by the OPC-UA server as well, so the
// cache is reloaded first.
func trackRegistrySize(ctx context.Context, registry *device.Registry, m *metrics.Metrics, log *logging.Logger) {
	ticker := time.NewTicker(registryGaugeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := registry.RefreshCache(ctx); err != nil {
				log.Warn("reloading device registry failed", "error", err)
				continue
			}
			m.SetDevicesRegistered(registry.GetDeviceCount())
		}
	}
}

// healthCheck verifies the infrastructure connections are healthy.
// mqttClient may be nil when MQTT is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	return nil
}
