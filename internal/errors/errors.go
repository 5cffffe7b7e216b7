package errors

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrConfigCannotBeNil     = errors.New("config cannot be nil")
	ErrStorage               = errors.New("known devices storage error")
	ErrProbe                 = errors.New("device enumeration failed")
	ErrTransport             = errors.New("chat transport error")
	ErrNotConnected          = errors.New("chat transport not connected")
	ErrInvalidMAC            = errors.New("invalid MAC address")
	ErrDeviceUserRequired    = errors.New("device user cannot be empty")
	ErrRequiredToolNotFound  = errors.New("required tool not found")
	ErrUnsupportedSNMPDriver = errors.New("unsupported snmp driver")
)

// ErrStorageWithPath wraps ErrStorage with the offending file and cause.
func ErrStorageWithPath(path string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, path, cause)
}

// ErrProbeWithTarget wraps ErrProbe with the router address and cause.
func ErrProbeWithTarget(target string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrProbe, target, cause)
}

// ErrTransportWithCause wraps ErrTransport with the underlying cause.
func ErrTransportWithCause(cause error) error {
	return fmt.Errorf("%w: %w", ErrTransport, cause)
}

// ErrInvalidMACWithValue wraps ErrInvalidMAC with the rejected value.
func ErrInvalidMACWithValue(mac string) error {
	return fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
}

// ErrRequiredToolNotFoundWithTool wraps ErrRequiredToolNotFound with the tool name.
func ErrRequiredToolNotFoundWithTool(tool string) error {
	return fmt.Errorf("%w: %s", ErrRequiredToolNotFound, tool)
}
