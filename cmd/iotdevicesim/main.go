// IOT Device Sim - device-state registry with command fan-out
//
// This is the main entry point for the registry service. It wires the
// Redis-backed store, the command pipeline, the bus listener, the
// optional MQTT command bridge, and the HTTP API together.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gidon31/IOTdeviceSim/internal/api"
	"github.com/Gidon31/IOTdeviceSim/internal/device"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/config"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/logging"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/mqtt"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/redis"
	"github.com/Gidon31/IOTdeviceSim/internal/listener"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting IOT Device Sim",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Connect to Redis
	store, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		log.Info("closing redis connection")
		if closeErr := store.Close(); closeErr != nil {
			log.Error("error closing redis", "error", closeErr)
		}
	}()
	log.Info("redis connected",
		"address", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		"db", cfg.Redis.DB,
	)

	// Wire the device registry core
	repo := device.NewRepository(store, log)
	publisher := device.NewEventPublisher(store, cfg.Listener.Channel, log)
	pipeline := device.NewPipeline(store, publisher, log)

	// Start the bus listener. A subscribe failure is not fatal: the
	// synchronous API path keeps working without the bus.
	if cfg.Listener.Enabled {
		busListener := listener.New(listener.Deps{
			Config: cfg.Listener,
			Logger: log,
			Subscribe: func(subCtx context.Context, channel string) (listener.Subscription, error) {
				return store.Subscribe(subCtx, channel)
			},
			Pipeline: pipeline,
		})
		if startErr := busListener.Start(ctx); startErr != nil {
			log.Error("bus listener failed to start, continuing without it", "error", startErr)
		} else {
			defer func() {
				log.Info("stopping bus listener")
				if closeErr := busListener.Close(); closeErr != nil {
					log.Error("error closing bus listener", "error", closeErr)
				}
			}()
		}
	} else {
		log.Info("bus listener disabled")
	}

	// Connect the MQTT command bridge (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge := listener.NewBridge(cfg.MQTT, log, mqttClient, pipeline)
		if startErr := bridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
	} else {
		log.Info("MQTT bridge disabled")
	}

	// Start the HTTP API
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Logger:   log,
		Repo:     repo,
		Pipeline: pipeline,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify connections are healthy
	if err := healthCheck(ctx, store, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. MQTT (if enabled)
	// 3. Bus listener (if started)
	// 4. Redis

	log.Info("IOT Device Sim stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses IOTSIM_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IOTSIM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - store: Redis store to check
//   - server: API server to check
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, store *redis.Store, server *api.Server) error {
	if err := store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}
