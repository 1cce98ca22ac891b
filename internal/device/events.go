package device

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/logging"
)

// EventTypeCommandApplied is the type tag on every published event.
const EventTypeCommandApplied = "device_command_applied"

// HistoryEntry is one immutable audit record of a single applied command.
// Entries are serialized to JSON and appended to the device's history
// list; they are never mutated or deleted by normal operation.
type HistoryEntry struct {
	Timestamp string            `json:"timestamp"`
	Command   map[string]string `json:"command"`
}

// Event is the transient broadcast payload emitted after a command is
// applied. It exists only on the wire, never in the store.
type Event struct {
	Type          string            `json:"type"`
	DeviceID      string            `json:"device_id"`
	UpdatedFields map[string]string `json:"updated_fields"`
	HistoryLength int64             `json:"history_length"`
	Timestamp     string            `json:"timestamp"`
}

// EventPublisher appends audit records and broadcasts command events on
// the per-device channel and the global command channel.
type EventPublisher struct {
	store         Store
	globalChannel string
	logger        *logging.Logger
}

// NewEventPublisher creates an EventPublisher.
//
// Parameters:
//   - store: Storage adapter for list appends and publishes
//   - globalChannel: Name of the global command channel
//   - logger: Logger for subscriber-count reporting
func NewEventPublisher(store Store, globalChannel string, logger *logging.Logger) *EventPublisher {
	return &EventPublisher{
		store:         store,
		globalChannel: globalChannel,
		logger:        logger.With("component", "event_publisher"),
	}
}

// AppendHistory appends one audit record to the device's history list.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - deviceID: Device the command was applied to
//   - timestamp: ISO-8601 UTC timestamp of the application
//   - command: The sanitized, coerced field mapping that was applied
//
// Returns:
//   - int64: The history length after the append
//   - error: nil on success, otherwise the underlying store error
func (p *EventPublisher) AppendHistory(ctx context.Context, deviceID, timestamp string, command map[string]string) (int64, error) {
	entry := HistoryEntry{
		Timestamp: timestamp,
		Command:   command,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("encoding history entry: %w", err)
	}

	length, err := p.store.AppendToList(ctx, HistoryKey(deviceID), string(data))
	if err != nil {
		return 0, fmt.Errorf("appending history for device %q: %w", deviceID, err)
	}
	return length, nil
}

// PublishApplied broadcasts a command-applied event.
//
// One copy goes to the device-specific channel, one equivalent serialized
// message to the global command channel. The subscriber count returned by
// the global publish is logged.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - deviceID: Device the command was applied to
//   - updatedFields: The coerced field mapping that was written
//   - historyLength: The post-append history count
//   - timestamp: ISO-8601 UTC timestamp of the application
//
// Returns:
//   - error: nil on success, otherwise the first publish error
func (p *EventPublisher) PublishApplied(ctx context.Context, deviceID string, updatedFields map[string]string, historyLength int64, timestamp string) error {
	event := Event{
		Type:          EventTypeCommandApplied,
		DeviceID:      deviceID,
		UpdatedFields: updatedFields,
		HistoryLength: historyLength,
		Timestamp:     timestamp,
	}

	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	if _, err := p.store.Publish(ctx, UpdatesChannel(deviceID), string(message)); err != nil {
		return fmt.Errorf("publishing device event for %q: %w", deviceID, err)
	}

	subscribers, err := p.store.Publish(ctx, p.globalChannel, string(message))
	if err != nil {
		return fmt.Errorf("publishing global event for %q: %w", deviceID, err)
	}

	p.logger.Info("published command event",
		"device_id", deviceID,
		"subscribers", subscribers,
	)

	return nil
}
