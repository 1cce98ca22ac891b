package device

// Redis key and channel layout.
//
// Persisted state:
//
//	device:<id>          hash, the device's current field mapping
//	device:history:<id>  list, append-only audit records
//
// Pub/sub channels (never persisted):
//
//	device:updates:<id>  per-device event channel
//	<global channel>     configured global command channel
const (
	stateKeyPrefix   = "device:"
	historyKeyPrefix = "device:history:"
	updatesChanPrefix = "device:updates:"

	// KeyPattern matches the device namespace for SCAN. History keys
	// match it too and must be filtered out by callers.
	KeyPattern = "device:*"
)

// StateKey returns the hash key for a device's current state.
func StateKey(id string) string {
	return stateKeyPrefix + id
}

// HistoryKey returns the list key for a device's audit history.
func HistoryKey(id string) string {
	return historyKeyPrefix + id
}

// UpdatesChannel returns the per-device pub/sub channel name.
func UpdatesChannel(id string) string {
	return updatesChanPrefix + id
}

// IsHistoryKey reports whether a scanned key belongs to the history
// namespace rather than a device hash.
func IsHistoryKey(key string) bool {
	return len(key) >= len(historyKeyPrefix) && key[:len(historyKeyPrefix)] == historyKeyPrefix
}

// IDFromStateKey reconstructs the device identifier from a hash key.
// The empty string is returned for keys outside the state namespace.
func IDFromStateKey(key string) string {
	if len(key) <= len(stateKeyPrefix) || key[:len(stateKeyPrefix)] != stateKeyPrefix {
		return ""
	}
	return key[len(stateKeyPrefix):]
}
