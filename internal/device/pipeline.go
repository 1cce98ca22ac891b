package device

import (
	"context"
	"fmt"
	"time"

	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/logging"
)

// Result statuses.
const StatusSuccess = "success"

// MessageNoChanges is returned when a command matches current state
// field-for-field and nothing was written.
const MessageNoChanges = "No changes applied – command is idempotent"

// Result is the outcome of a command application.
type Result struct {
	DeviceID string `json:"device_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// Pipeline is the command-application orchestrator. It composes the
// existence check, sanitization, idempotence detection, atomic state
// update, history append, and dual-channel event publication into one
// operation, invoked both synchronously (API request) and asynchronously
// (bus-driven re-application).
//
// There is no rollback across steps: a store failure after the hash write
// leaves state updated but history or subscribers behind. See the package
// documentation for the accepted consistency gaps.
type Pipeline struct {
	store     Store
	publisher *EventPublisher
	logger    *logging.Logger
}

// NewPipeline creates a Pipeline.
func NewPipeline(store Store, publisher *EventPublisher, logger *logging.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		publisher: publisher,
		logger:    logger.With("component", "command_pipeline"),
	}
}

// ApplyCommand validates and applies a command to a device.
//
// Sequence:
//  1. Fail with ErrDeviceNotFound if the device key does not exist.
//  2. Sanitize; fail with ErrEmptyCommand if nothing valid remains.
//  3. Read current state; if the coerced command is idempotent, return
//     success early with no side effects beyond the read.
//  4. Write the coerced mapping into the device hash (one atomic update).
//  5. Append a history entry; capture the resulting list length.
//  6. Publish one event per channel (device-specific and global).
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - deviceID: Target device identifier
//   - raw: Inbound command, unsanitized
//
// Returns:
//   - Result: Outcome with a human-readable message
//   - error: ErrDeviceNotFound, ErrEmptyCommand, or a store error from
//     steps 3-6
func (p *Pipeline) ApplyCommand(ctx context.Context, deviceID string, raw Command) (Result, error) {
	stateKey := StateKey(deviceID)

	exists, err := p.store.Exists(ctx, stateKey)
	if err != nil {
		return Result{}, fmt.Errorf("applying command to %q: %w", deviceID, err)
	}
	if !exists {
		p.logger.Debug("command for unknown device", "device_id", deviceID)
		return Result{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}

	sanitized, dropped := Sanitize(raw)
	if len(dropped) > 0 {
		p.logger.Warn("dropping unknown command fields",
			"device_id", deviceID,
			"fields", dropped,
			"valid_fields", ValidFieldNames(),
		)
	}
	if len(sanitized) == 0 {
		return Result{}, fmt.Errorf("%w: device %s", ErrEmptyCommand, deviceID)
	}

	coerced := Coerce(sanitized)

	current, err := p.store.GetHash(ctx, stateKey)
	if err != nil {
		return Result{}, fmt.Errorf("reading state for %q: %w", deviceID, err)
	}

	if IsIdempotent(current, coerced) {
		p.logger.Info("idempotent command, skipping", "device_id", deviceID)
		return Result{
			DeviceID: deviceID,
			Status:   StatusSuccess,
			Message:  MessageNoChanges,
		}, nil
	}

	if err := p.store.SetHashFields(ctx, stateKey, coerced); err != nil {
		return Result{}, fmt.Errorf("writing state for %q: %w", deviceID, err)
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	historyLength, err := p.publisher.AppendHistory(ctx, deviceID, timestamp, coerced)
	if err != nil {
		// State is already written; surface the failure rather than
		// pretending the audit record exists.
		return Result{}, err
	}

	if err := p.publisher.PublishApplied(ctx, deviceID, coerced, historyLength, timestamp); err != nil {
		// Same gap: state and history are durable, subscribers missed out.
		return Result{}, err
	}

	fields := FormatFields(coerced)
	p.logger.Info("command applied",
		"device_id", deviceID,
		"fields", fields,
		"history_length", historyLength,
	)

	return Result{
		DeviceID: deviceID,
		Status:   StatusSuccess,
		Message:  fmt.Sprintf("Updated fields: %s for device: %s", fields, deviceID),
	}, nil
}
