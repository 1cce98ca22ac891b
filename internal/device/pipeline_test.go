package device

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newTestPipeline(store *fakeStore) *Pipeline {
	log := testLogger()
	return NewPipeline(store, NewEventPublisher(store, "device_commands", log), log)
}

func TestApplyCommand(t *testing.T) {
	store := newFakeStore()
	store.seedDevice(t, "1", validHash())
	store.subscriberCount = 2
	p := newTestPipeline(store)

	result, err := p.ApplyCommand(context.Background(), "1", Command{"status": "alert", "online": false})
	if err != nil {
		t.Fatalf("ApplyCommand() error = %v", err)
	}

	if result.DeviceID != "1" {
		t.Errorf("DeviceID = %q, want %q", result.DeviceID, "1")
	}
	if result.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", result.Status, StatusSuccess)
	}
	if !strings.Contains(result.Message, "status=alert") || !strings.Contains(result.Message, "online=false") {
		t.Errorf("Message = %q, want applied fields listed", result.Message)
	}

	// State updated atomically with coerced values.
	hash, _ := store.GetHash(context.Background(), StateKey("1"))
	if hash[FieldStatus] != "alert" {
		t.Errorf("stored status = %q, want %q", hash[FieldStatus], "alert")
	}
	if hash[FieldOnline] != "false" {
		t.Errorf("stored online = %q, want %q", hash[FieldOnline], "false")
	}
	// Untouched fields survive.
	if hash[FieldName] != "Thermostat" {
		t.Errorf("stored name = %q, want %q", hash[FieldName], "Thermostat")
	}

	// Exactly one history entry holding the coerced command.
	if got := store.historyLen("1"); got != 1 {
		t.Fatalf("history length = %d, want 1", got)
	}
	var entry HistoryEntry
	if err := json.Unmarshal([]byte(store.lists[HistoryKey("1")][0]), &entry); err != nil {
		t.Fatalf("history entry is not valid JSON: %v", err)
	}
	if entry.Timestamp == "" {
		t.Error("history entry timestamp is empty")
	}
	if entry.Command[FieldStatus] != "alert" || entry.Command[FieldOnline] != "false" {
		t.Errorf("history command = %v, want coerced input", entry.Command)
	}

	// One event on each channel, identical payloads.
	perDevice := store.publishedOn(UpdatesChannel("1"))
	global := store.publishedOn("device_commands")
	if len(perDevice) != 1 {
		t.Fatalf("per-device publishes = %d, want 1", len(perDevice))
	}
	if len(global) != 1 {
		t.Fatalf("global publishes = %d, want 1", len(global))
	}
	if perDevice[0] != global[0] {
		t.Error("per-device and global payloads differ")
	}

	var event Event
	if err := json.Unmarshal([]byte(global[0]), &event); err != nil {
		t.Fatalf("event is not valid JSON: %v", err)
	}
	if event.Type != EventTypeCommandApplied {
		t.Errorf("event type = %q, want %q", event.Type, EventTypeCommandApplied)
	}
	if event.HistoryLength != 1 {
		t.Errorf("event history_length = %d, want 1", event.HistoryLength)
	}
	if event.UpdatedFields[FieldStatus] != "alert" {
		t.Errorf("event updated_fields = %v, want coerced command", event.UpdatedFields)
	}
}

func TestApplyCommand_NotFound(t *testing.T) {
	store := newFakeStore()
	p := newTestPipeline(store)

	_, err := p.ApplyCommand(context.Background(), "ghost", Command{"status": "on"})
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("ApplyCommand() error = %v, want ErrDeviceNotFound", err)
	}

	// No history entry, no event.
	if got := store.historyLen("ghost"); got != 0 {
		t.Errorf("history length = %d, want 0", got)
	}
	if len(store.published) != 0 {
		t.Errorf("publishes = %d, want 0", len(store.published))
	}
}

func TestApplyCommand_EmptyAfterSanitize(t *testing.T) {
	store := newFakeStore()
	store.seedDevice(t, "1", validHash())
	p := newTestPipeline(store)

	tests := []struct {
		name string
		cmd  Command
	}{
		{"already empty", Command{}},
		{"all fields unknown", Command{"voltage": 9000, "color": "red"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ApplyCommand(context.Background(), "1", tt.cmd)
			if !errors.Is(err, ErrEmptyCommand) {
				t.Fatalf("ApplyCommand() error = %v, want ErrEmptyCommand", err)
			}
		})
	}

	// Unknown fields never reached the store.
	hash, _ := store.GetHash(context.Background(), StateKey("1"))
	if _, ok := hash["voltage"]; ok {
		t.Error("unknown field leaked into stored state")
	}
	if got := store.historyLen("1"); got != 0 {
		t.Errorf("history length = %d, want 0", got)
	}
}

func TestApplyCommand_Idempotent(t *testing.T) {
	store := newFakeStore()
	store.seedDevice(t, "1", map[string]string{
		FieldName: "Lamp", FieldType: "light", FieldStatus: "normal", FieldOnline: "true",
	})
	p := newTestPipeline(store)

	// First application changes state and appends history.
	first, err := p.ApplyCommand(context.Background(), "1", Command{"status": "normal", "online": true})
	if err != nil {
		t.Fatalf("first ApplyCommand() error = %v", err)
	}
	if first.Message != MessageNoChanges {
		t.Fatalf("first Message = %q, want idempotent short-circuit (state already matches)", first.Message)
	}

	// Now change something, then repeat it.
	if _, err := p.ApplyCommand(context.Background(), "1", Command{"status": "alert"}); err != nil {
		t.Fatalf("ApplyCommand() error = %v", err)
	}
	if got := store.historyLen("1"); got != 1 {
		t.Fatalf("history length = %d, want 1", got)
	}
	publishesBefore := len(store.published)

	second, err := p.ApplyCommand(context.Background(), "1", Command{"status": "alert"})
	if err != nil {
		t.Fatalf("second ApplyCommand() error = %v", err)
	}
	if second.Status != StatusSuccess {
		t.Errorf("Status = %q, want %q", second.Status, StatusSuccess)
	}
	if !strings.Contains(second.Message, "No changes applied") {
		t.Errorf("Message = %q, want no-changes message", second.Message)
	}

	// The no-op left no trace: same history, no new events.
	if got := store.historyLen("1"); got != 1 {
		t.Errorf("history length after idempotent command = %d, want 1", got)
	}
	if len(store.published) != publishesBefore {
		t.Errorf("publishes = %d, want %d (unchanged)", len(store.published), publishesBefore)
	}
}

func TestApplyCommand_BooleanCoercion(t *testing.T) {
	store := newFakeStore()
	store.seedDevice(t, "1", validHash())
	p := newTestPipeline(store)

	if _, err := p.ApplyCommand(context.Background(), "1", Command{"online": false}); err != nil {
		t.Fatalf("ApplyCommand() error = %v", err)
	}

	hash, _ := store.GetHash(context.Background(), StateKey("1"))
	if hash[FieldOnline] != "false" {
		t.Errorf("stored online = %q, want exactly %q", hash[FieldOnline], "false")
	}
}

func TestApplyCommand_AppliedTwiceIsStable(t *testing.T) {
	store := newFakeStore()
	store.seedDevice(t, "1", validHash())
	p := newTestPipeline(store)

	cmd := Command{"status": "maintenance", "online": false}

	if _, err := p.ApplyCommand(context.Background(), "1", cmd); err != nil {
		t.Fatalf("first ApplyCommand() error = %v", err)
	}
	afterFirst, _ := store.GetHash(context.Background(), StateKey("1"))

	result, err := p.ApplyCommand(context.Background(), "1", cmd)
	if err != nil {
		t.Fatalf("second ApplyCommand() error = %v", err)
	}
	if result.Message != MessageNoChanges {
		t.Errorf("second Message = %q, want %q", result.Message, MessageNoChanges)
	}

	afterSecond, _ := store.GetHash(context.Background(), StateKey("1"))
	for k, v := range afterFirst {
		if afterSecond[k] != v {
			t.Errorf("state changed on repeat: %s = %q, was %q", k, afterSecond[k], v)
		}
	}
	if got := store.historyLen("1"); got != 1 {
		t.Errorf("history length = %d, want exactly 1", got)
	}
}

func TestApplyCommand_HistoryFailureSurfaces(t *testing.T) {
	store := newFakeStore()
	store.seedDevice(t, "1", validHash())
	store.failAppend = errors.New("list append refused")
	p := newTestPipeline(store)

	_, err := p.ApplyCommand(context.Background(), "1", Command{"status": "alert"})
	if err == nil {
		t.Fatal("ApplyCommand() expected error, got nil")
	}

	// No rollback: the hash write already happened. The gap is surfaced,
	// not masked.
	hash, _ := store.GetHash(context.Background(), StateKey("1"))
	if hash[FieldStatus] != "alert" {
		t.Errorf("stored status = %q, want %q (write is not rolled back)", hash[FieldStatus], "alert")
	}
	if len(store.published) != 0 {
		t.Errorf("publishes = %d, want 0", len(store.published))
	}
}
