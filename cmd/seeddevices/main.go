// seeddevices loads a JSON device file into Redis.
//
// By default it clears every device and history key first, so the store
// ends up matching the file exactly. Pass -no-clean to keep existing
// keys and overwrite only the seeded ones.
//
// Usage:
//
//	seeddevices [-file testdata/devices.json] [-no-clean]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gidon31/IOTdeviceSim/internal/device"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/config"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/logging"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/redis"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	dataPath := flag.String("file", "testdata/devices.json", "path to the JSON device file")
	noClean := flag.Bool("no-clean", false, "keep existing device keys instead of clearing them first")
	flag.Parse()

	log := logging.Default()

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer store.Close()
	log.Info("redis connected",
		"address", fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		"db", cfg.Redis.DB,
	)

	if *noClean {
		log.Info("skipping cleanup, existing keys are kept")
	} else {
		cleared, clearErr := clearDevices(ctx, store)
		if clearErr != nil {
			return fmt.Errorf("clearing device keys: %w", clearErr)
		}
		log.Info("cleared device keys", "count", cleared)
	}

	devices, err := loadDevices(*dataPath)
	if err != nil {
		return err
	}
	log.Info("loaded device file", "path", *dataPath, "devices", len(devices))

	seeded := 0
	for _, dev := range devices {
		if dev.ID == "" {
			log.Warn("skipping device without id", "name", dev.Name)
			continue
		}

		key := device.StateKey(dev.ID)
		if err := store.SetHashFields(ctx, key, dev.Hash()); err != nil {
			return fmt.Errorf("seeding %s: %w", key, err)
		}
		log.Info("seeded device", "key", key)
		seeded++
	}

	log.Info("seeding complete", "devices", seeded)
	return nil
}

// clearDevices deletes every device state and history key.
// The device:* pattern already covers device:history:* keys.
func clearDevices(ctx context.Context, store *redis.Store) (int, error) {
	keys := make([]string, 0)
	err := store.ScanKeys(ctx, device.KeyPattern, func(key string) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, key := range keys {
		if err := store.DeleteKey(ctx, key); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

// loadDevices reads and decodes the JSON device file.
func loadDevices(path string) ([]device.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading device file: %w", err)
	}

	var devices []device.Device
	if err := json.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("decoding device file: %w", err)
	}
	return devices, nil
}

// getConfigPath returns the configuration file path.
// Uses IOTSIM_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IOTSIM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
