// Package device implements the device-state registry and the
// command-application pipeline for the IoT device simulator.
//
// A device is a flat hash in Redis under device:<id>; every value is stored
// as a string ("true"/"false" for booleans). Commands are field mappings
// applied against the hash. An accepted command is persisted atomically,
// appended to the device's append-only history list, and broadcast as an
// event on two pub/sub channels (per-device and global).
//
// # Key Types
//
//   - Device: a validated snapshot of one device hash
//   - Command: a transient inbound field mapping, sanitized and coerced
//     before anything touches the store
//   - Repository: read path (list / fetch) over the store
//   - Pipeline: the command-application sequence (existence check,
//     sanitize, idempotence check, write, history append, publish)
//   - EventPublisher: history append + dual-channel event publication
//
// # Consistency
//
// There is no transaction spanning the hash write, the history append, and
// the event publication. A store failure after the hash write leaves state
// updated but subscribers unnotified; this gap is accepted rather than
// masked. Two racing identical commands can both pass the idempotence check
// and both write (last-writer-wins) with two history entries; no in-process
// lock serialises per-device updates.
//
// # Usage
//
//	repo := device.NewRepository(store, log)
//	publisher := device.NewEventPublisher(store, cfg.Listener.Channel, log)
//	pipeline := device.NewPipeline(store, publisher, log)
//
//	result, err := pipeline.ApplyCommand(ctx, "1", device.Command{"status": "active"})
package device
