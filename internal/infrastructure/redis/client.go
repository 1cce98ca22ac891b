package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Gidon31/IOTdeviceSim/internal/infrastructure/config"
)

// defaultDialTimeout is the maximum time to wait for the initial connection.
const defaultDialTimeout = 5 * time.Second

// Store wraps go-redis with the narrow operation set the simulator needs.
//
// It owns the connection pool lifecycle: created with Connect(), torn down
// with Close(). Every operation is bounded by the configured per-operation
// timeout in addition to whatever deadline the caller's context carries.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Store struct {
	client    *goredis.Client
	opTimeout time.Duration
}

// Connect establishes a connection to Redis and verifies it with a ping.
//
// Parameters:
//   - ctx: Context for the initial ping
//   - cfg: Redis configuration from config.yaml
//
// Returns:
//   - *Store: Connected store ready for use
//   - error: If the initial ping fails within the timeout
func Connect(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	opTimeout := cfg.GetOpTimeout()

	client := goredis.NewClient(&goredis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		DB:           cfg.DB,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})

	s := &Store{
		client:    client,
		opTimeout: opTimeout,
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return s, nil
}

// Close releases the connection pool.
//
// Returns:
//   - error: If closing the underlying client fails
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("closing redis client: %w", err)
	}
	return nil
}

// HealthCheck verifies the Redis connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return ErrNotConnected
	}

	opCtx, cancel := s.opContext(ctx)
	defer cancel()

	if err := s.client.Ping(opCtx).Err(); err != nil {
		return fmt.Errorf("redis health check: %w", err)
	}
	return nil
}

// opContext derives a context bounded by the per-operation timeout.
func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}
