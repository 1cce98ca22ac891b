package device

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Command is a transient inbound field mapping. Values carry whatever JSON
// types the producer sent; nothing reaches the store until the command has
// been sanitized and coerced to strings.
type Command map[string]any

// Sanitize strips any key not in the device field allow-list.
//
// Unknown keys are discarded, not rejected; callers log them as warnings
// and must treat a fully-stripped command as invalid input.
//
// Parameters:
//   - cmd: Raw inbound command
//
// Returns:
//   - Command: New mapping containing only allow-listed keys
//   - []string: The dropped keys, sorted, for warn-logging
func Sanitize(cmd Command) (Command, []string) {
	kept := make(Command, len(cmd))
	var dropped []string

	for k, v := range cmd {
		if IsValidField(k) {
			kept[k] = v
		} else {
			dropped = append(dropped, k)
		}
	}
	sort.Strings(dropped)

	return kept, dropped
}

// Coerce converts every command value to its stored string form.
//
// Booleans become the literal strings "true"/"false"; numbers are
// formatted without an exponent; everything else takes its default string
// representation. The store has no native boolean or number type, so this
// coerced form is what gets compared and persisted.
func Coerce(cmd Command) map[string]string {
	coerced := make(map[string]string, len(cmd))
	for k, v := range cmd {
		coerced[k] = coerceValue(v)
	}
	return coerced
}

// coerceValue converts a single JSON-typed value to its stored string form.
func coerceValue(v any) string {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val)
	case string:
		return val
	case float64:
		// JSON numbers decode as float64; format without trailing zeros
		// so 5 stores as "5", not "5.000000".
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// IsIdempotent reports whether a coerced command would change nothing:
// every key's coerced value already equals the stored value.
//
// An empty command is vacuously idempotent; callers reject empty commands
// before reaching this check.
func IsIdempotent(current map[string]string, coerced map[string]string) bool {
	for k, v := range coerced {
		if current[k] != v {
			return false
		}
	}
	return true
}

// FormatFields renders a coerced field mapping as a stable, sorted
// "key=value" list for result messages and logs.
func FormatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+fields[k])
	}
	return strings.Join(parts, ", ")
}
