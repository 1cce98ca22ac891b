// Package redis provides the storage adapter for the IoT device simulator.
//
// Every durable structure in the system lives in Redis:
//   - Device hashes under device:<id>
//   - Per-device history lists under device:history:<id>
//   - Pub/sub channels for command events (per-device and global)
//
// The Store wraps go-redis with:
//   - Explicit connection lifecycle (Connect / Close / HealthCheck)
//   - A bounded per-operation timeout so a slow or partitioned Redis
//     degrades individual requests instead of hanging the process
//   - Narrow operations matching what the domain needs: key existence,
//     hash read, atomic multi-field hash write, list append, key scan,
//     publish, and subscribe
//
// # Thread Safety
//
// The underlying go-redis client maintains its own connection pool and is
// safe for concurrent use. Subscriptions get a dedicated connection, as
// required by the Redis protocol.
//
// # Usage
//
//	store, err := redis.Connect(ctx, cfg.Redis)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	exists, err := store.Exists(ctx, "device:1")
package redis
