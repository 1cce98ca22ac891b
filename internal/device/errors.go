package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrEmptyCommand is returned when a command contains no valid fields,
	// either because it was empty or because sanitization removed everything.
	ErrEmptyCommand = errors.New("device: command has no valid fields")

	// ErrMalformedDevice is returned when a device hash exists but cannot
	// be validated into a Device. Distinct from ErrDeviceNotFound because
	// the key's existence was already confirmed.
	ErrMalformedDevice = errors.New("device: malformed record")
)
