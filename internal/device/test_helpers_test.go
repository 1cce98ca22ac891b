package device

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/config"
	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/logging"
)

// fakeStore is an in-memory Store for pipeline and repository tests.
// It mirrors the semantics the production adapter relies on: empty map for
// missing hashes, atomic multi-field writes, list lengths from appends,
// and subscriber counts from publishes.
type fakeStore struct {
	mu     sync.Mutex
	hashes map[string]map[string]string
	lists  map[string][]string

	// published records every Publish call in order.
	published []publishedMessage

	// subscriberCount is returned from every Publish.
	subscriberCount int64

	// Failure injection, one error slot per operation.
	failExists  error
	failGetHash error
	failSetHash error
	failAppend  error
	failPublish error
	failScan    error
}

type publishedMessage struct {
	channel string
	payload string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		hashes: make(map[string]map[string]string),
		lists:  make(map[string][]string),
	}
}

func (f *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failExists != nil {
		return false, f.failExists
	}
	_, ok := f.hashes[key]
	return ok, nil
}

func (f *fakeStore) GetHash(_ context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGetHash != nil {
		return nil, f.failGetHash
	}
	out := make(map[string]string, len(f.hashes[key]))
	for k, v := range f.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) SetHashFields(_ context.Context, key string, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetHash != nil {
		return f.failSetHash
	}
	if f.hashes[key] == nil {
		f.hashes[key] = make(map[string]string)
	}
	for k, v := range fields {
		f.hashes[key][k] = v
	}
	return nil
}

func (f *fakeStore) AppendToList(_ context.Context, key string, entry string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppend != nil {
		return 0, f.failAppend
	}
	f.lists[key] = append(f.lists[key], entry)
	return int64(len(f.lists[key])), nil
}

func (f *fakeStore) ScanKeys(_ context.Context, pattern string, fn func(key string) error) error {
	f.mu.Lock()
	if f.failScan != nil {
		f.mu.Unlock()
		return f.failScan
	}
	keys := make([]string, 0, len(f.hashes)+len(f.lists))
	for k := range f.hashes {
		keys = append(keys, k)
	}
	for k := range f.lists {
		keys = append(keys, k)
	}
	f.mu.Unlock()

	// Only the device namespace exists in these tests; a glob matcher
	// would be dead weight.
	if pattern != KeyPattern {
		return nil
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) Publish(_ context.Context, channel string, message string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPublish != nil {
		return 0, f.failPublish
	}
	f.published = append(f.published, publishedMessage{channel: channel, payload: message})
	return f.subscriberCount, nil
}

// seedDevice writes a device hash directly into the fake store.
func (f *fakeStore) seedDevice(t *testing.T, id string, fields map[string]string) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	hash := make(map[string]string, len(fields))
	for k, v := range fields {
		hash[k] = v
	}
	f.hashes[StateKey(id)] = hash
}

// historyLen returns the current history length for a device.
func (f *fakeStore) historyLen(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lists[HistoryKey(id)])
}

// publishedOn returns the payloads published to a channel, in order.
func (f *fakeStore) publishedOn(channel string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.published {
		if m.channel == channel {
			out = append(out, m.payload)
		}
	}
	return out
}

// testLogger returns a quiet logger for tests.
func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
}

// validHash returns a complete, valid device hash.
func validHash() map[string]string {
	return map[string]string{
		FieldName:   "Thermostat",
		FieldType:   "thermostat",
		FieldStatus: "normal",
		FieldOnline: "true",
	}
}
