package redis

import (
	"context"
	"fmt"
)

// scanBatchSize is the COUNT hint passed to SCAN. Larger values reduce
// round trips at the cost of per-call latency.
const scanBatchSize = 100

// Exists reports whether a key is present in the store.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - key: Key to check
//
// Returns:
//   - bool: true if the key exists
//   - error: nil on success, otherwise the underlying store error
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrInvalidKey
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	n, err := s.client.Exists(opCtx, key).Result()
	if err != nil {
		return false, fmt.Errorf("checking key %q: %w", key, err)
	}
	return n > 0, nil
}

// GetHash reads all fields of a hash key.
//
// A missing key yields an empty map and no error, matching Redis HGETALL
// semantics. Callers treat an empty hash as a nonexistent record.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - key: Hash key to read
//
// Returns:
//   - map[string]string: Field name to string value mapping (may be empty)
//   - error: nil on success, otherwise the underlying store error
func (s *Store) GetHash(ctx context.Context, key string) (map[string]string, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	fields, err := s.client.HGetAll(opCtx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("reading hash %q: %w", key, err)
	}
	return fields, nil
}

// SetHashFields writes multiple fields into a hash key in one atomic HSET.
//
// All fields become visible together to any concurrent reader. Redis never
// exposes a partial subset of a single HSET.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - key: Hash key to write
//   - fields: Field name to string value mapping
//
// Returns:
//   - error: nil on success, otherwise the underlying store error
func (s *Store) SetHashFields(ctx context.Context, key string, fields map[string]string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(fields) == 0 {
		return nil
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.client.HSet(opCtx, key, fields).Err(); err != nil {
		return fmt.Errorf("writing hash %q: %w", key, err)
	}
	return nil
}

// AppendToList appends a serialized entry to a list key.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - key: List key to append to
//   - entry: Serialized entry (typically JSON)
//
// Returns:
//   - int64: The list length after the append
//   - error: nil on success, otherwise the underlying store error
func (s *Store) AppendToList(ctx context.Context, key string, entry string) (int64, error) {
	if key == "" {
		return 0, ErrInvalidKey
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	length, err := s.client.RPush(opCtx, key, entry).Result()
	if err != nil {
		return 0, fmt.Errorf("appending to list %q: %w", key, err)
	}
	return length, nil
}

// ScanKeys streams every key matching the pattern to fn.
//
// Keys arrive lazily as SCAN cursor pages are fetched; the traversal is
// finite and cannot be restarted. If fn returns an error the scan stops
// and that error is returned.
//
// Parameters:
//   - ctx: Context for timeout/cancellation (covers the whole traversal)
//   - pattern: Redis glob pattern, e.g. "device:*"
//   - fn: Callback invoked once per matching key
//
// Returns:
//   - error: nil on success, the callback's error, or the underlying scan error
func (s *Store) ScanKeys(ctx context.Context, pattern string, fn func(key string) error) error {
	iter := s.client.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
	for iter.Next(ctx) {
		if err := fn(iter.Val()); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning keys %q: %w", pattern, err)
	}
	return nil
}

// DeleteKey removes a key from the store.
//
// Used by the seeding tool to clear stale device records. Deleting a
// missing key is not an error.
func (s *Store) DeleteKey(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.client.Del(opCtx, key).Err(); err != nil {
		return fmt.Errorf("deleting key %q: %w", key, err)
	}
	return nil
}
