package device

import (
	"context"
	"fmt"

	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/logging"
)

// Repository provides the read path over device hashes.
//
// It owns no state of its own; every call re-reads the store, so there is
// no cache to keep coherent and no read-your-writes guarantee beyond the
// store's own consistency.
type Repository struct {
	store  Store
	logger *logging.Logger
}

// NewRepository creates a Repository backed by the given store.
func NewRepository(store Store, logger *logging.Logger) *Repository {
	return &Repository{
		store:  store,
		logger: logger.With("component", "device_repository"),
	}
}

// ListDevices scans the device namespace and returns every valid device.
//
// History keys are filtered out of the scan. A hash that is empty or fails
// validation is skipped with a logged error rather than failing the whole
// listing; one corrupted record must not hide the rest.
//
// Parameters:
//   - ctx: Context for timeout/cancellation (covers the whole scan)
//
// Returns:
//   - []Device: All valid devices (never nil, may be empty)
//   - error: Only for store-level failures, not per-record validation
func (r *Repository) ListDevices(ctx context.Context) ([]Device, error) {
	devices := make([]Device, 0)

	err := r.store.ScanKeys(ctx, KeyPattern, func(key string) error {
		if IsHistoryKey(key) {
			return nil
		}

		hash, err := r.store.GetHash(ctx, key)
		if err != nil {
			return err
		}
		if len(hash) == 0 {
			return nil
		}

		dev, err := ParseDevice(IDFromStateKey(key), hash)
		if err != nil {
			r.logger.Error("skipping invalid device record",
				"key", key,
				"error", err,
			)
			return nil
		}

		devices = append(devices, dev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	return devices, nil
}

// FetchDevice reads and validates a single device.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - id: Device identifier
//
// Returns:
//   - Device: The validated device
//   - error: ErrDeviceNotFound when the key is absent or its hash is
//     empty; ErrMalformedDevice when the record exists but cannot be
//     validated; otherwise the underlying store error
func (r *Repository) FetchDevice(ctx context.Context, id string) (Device, error) {
	key := StateKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return Device{}, fmt.Errorf("fetching device %q: %w", id, err)
	}
	if !exists {
		r.logger.Debug("device not found", "device_id", id)
		return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	hash, err := r.store.GetHash(ctx, key)
	if err != nil {
		return Device{}, fmt.Errorf("fetching device %q: %w", id, err)
	}
	if len(hash) == 0 {
		// The key vanished between the existence check and the read.
		return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	dev, err := ParseDevice(id, hash)
	if err != nil {
		r.logger.Error("failed to validate device record",
			"device_id", id,
			"error", err,
		)
		return Device{}, err
	}

	return dev, nil
}
