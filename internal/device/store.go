package device

import "context"

// Store is the storage adapter consumed by the device registry and the
// command pipeline. The production implementation is
// internal/infrastructure/redis.Store; tests use an in-memory fake.
//
// Implementations must be safe for concurrent use and should bound each
// operation with a timeout so a slow store degrades individual calls
// rather than wedging the process.
type Store interface {
	// Exists reports whether a key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// GetHash reads all fields of a hash key. A missing key yields an
	// empty map, not an error.
	GetHash(ctx context.Context, key string) (map[string]string, error)

	// SetHashFields writes multiple hash fields in one atomic update;
	// concurrent readers never observe a partial subset.
	SetHashFields(ctx context.Context, key string, fields map[string]string) error

	// AppendToList appends a serialized entry and returns the new length.
	AppendToList(ctx context.Context, key string, entry string) (int64, error)

	// ScanKeys streams every key matching the pattern to fn, lazily and
	// exactly once. An error from fn aborts the scan.
	ScanKeys(ctx context.Context, pattern string, fn func(key string) error) error

	// Publish sends a message to a pub/sub channel and returns the
	// subscriber count.
	Publish(ctx context.Context, channel string, message string) (int64, error)
}
