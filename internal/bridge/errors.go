package bridge

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a rejected command
type ErrorKind int

const (
	// UnknownDevice means the command named no registered device.
	UnknownDevice ErrorKind = iota
	// PinFailure means the output could not be driven.
	PinFailure
)

// String returns a human-readable name for the kind
func (k ErrorKind) String() string {
	switch k {
	case UnknownDevice:
		return "UnknownDevice"
	case PinFailure:
		return "PinFailure"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// CommandError is a command the bridge did not apply. It never stops the
// bridge or affects other devices.
type CommandError struct {
	Kind   ErrorKind
	Device string
	Err    error
}

// Error implements the error interface
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %q", e.Kind, e.Device)
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsUnknownDevice checks if err is an UnknownDevice rejection
func IsUnknownDevice(err error) bool {
	var e *CommandError
	return errors.As(err, &e) && e.Kind == UnknownDevice
}
