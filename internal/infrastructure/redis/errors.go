package redis

import "errors"

// Domain-specific errors for Redis operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("redis: connection failed")

	// ErrNotConnected is returned when attempting operations on a closed store.
	ErrNotConnected = errors.New("redis: store not connected")

	// ErrInvalidChannel is returned when an empty channel name is provided.
	ErrInvalidChannel = errors.New("redis: channel cannot be empty")

	// ErrInvalidKey is returned when an empty key is provided.
	ErrInvalidKey = errors.New("redis: key cannot be empty")
)
