package device

import (
	"fmt"
	"strings"
)

// Device field names as stored in the device hash.
const (
	FieldName   = "name"
	FieldType   = "type"
	FieldStatus = "status"
	FieldOnline = "online"
)

// validFields is the fixed allow-list of writable device fields.
// Command keys outside this set are stripped during sanitization.
var validFields = map[string]struct{}{
	FieldName:   {},
	FieldType:   {},
	FieldStatus: {},
	FieldOnline: {},
}

// Device is a validated snapshot of one device hash.
//
// All values are persisted as strings; Online is canonicalised to the
// literal strings "true"/"false" in the store and converted back to a
// boolean on read.
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Online bool   `json:"online"`
}

// ParseDevice validates a raw device hash into a Device.
//
// Parameters:
//   - id: Device identifier reconstructed from the hash key
//   - hash: Raw field mapping read from the store
//
// Returns:
//   - Device: Validated device
//   - error: ErrMalformedDevice (wrapped with detail) if a required field
//     is missing or the online field is not "true"/"false"
func ParseDevice(id string, hash map[string]string) (Device, error) {
	for _, field := range []string{FieldName, FieldType, FieldStatus, FieldOnline} {
		if _, ok := hash[field]; !ok {
			return Device{}, fmt.Errorf("%w: missing field %q", ErrMalformedDevice, field)
		}
	}

	online, err := parseStoredBool(hash[FieldOnline])
	if err != nil {
		return Device{}, fmt.Errorf("%w: field %q: %w", ErrMalformedDevice, FieldOnline, err)
	}

	return Device{
		ID:     id,
		Name:   hash[FieldName],
		Type:   hash[FieldType],
		Status: hash[FieldStatus],
		Online: online,
	}, nil
}

// parseStoredBool converts a stored boolean back to a Go bool.
// Only the canonical lowercase forms written by Coerce are accepted.
func parseStoredBool(v string) (bool, error) {
	switch v {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("value %q is not \"true\" or \"false\"", v)
	}
}

// Hash returns the device's persisted field mapping, with the boolean
// canonicalised to its stored string form. Used by the seeding tool.
func (d Device) Hash() map[string]string {
	online := "false"
	if d.Online {
		online = "true"
	}
	return map[string]string{
		FieldName:   d.Name,
		FieldType:   d.Type,
		FieldStatus: d.Status,
		FieldOnline: online,
	}
}

// IsValidField reports whether a field name is in the device allow-list.
func IsValidField(name string) bool {
	_, ok := validFields[name]
	return ok
}

// ValidFieldNames returns the allow-list as a sorted, comma-joined string
// for error messages and logs.
func ValidFieldNames() string {
	return strings.Join([]string{FieldName, FieldOnline, FieldStatus, FieldType}, ", ")
}
