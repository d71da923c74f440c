package connectivity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a connectivity failure
type ErrorKind int

const (
	// ConnectTimeout means the join with stored credentials failed or ran out
	// of time. It is recovered by opening the provisioning access point.
	ConnectTimeout ErrorKind = iota
	// ProvisionTimeout means the access point window ended without a
	// successful join. It escalates to a device restart.
	ProvisionTimeout
)

// String returns a human-readable name for the kind
func (k ErrorKind) String() string {
	switch k {
	case ConnectTimeout:
		return "ConnectTimeout"
	case ProvisionTimeout:
		return "ProvisionTimeout"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a connectivity failure
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// IsConnectTimeout checks if err is a ConnectTimeout
func IsConnectTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ConnectTimeout
}

// IsProvisionTimeout checks if err is a ProvisionTimeout
func IsProvisionTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == ProvisionTimeout
}
