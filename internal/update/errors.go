package update

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an update attempt was abandoned
type ErrorKind int

const (
	// AuthFailure means the password did not match. No data was transferred.
	AuthFailure ErrorKind = iota
	// BeginFailure means the image could not be staged (busy, no space).
	BeginFailure
	// ConnectFailure means the transfer session could not be established.
	ConnectFailure
	// ReceiveFailure means the transfer broke off or sent too much data.
	ReceiveFailure
	// EndFailure means the image failed verification or could not be installed.
	EndFailure
)

// String returns a human-readable name for the kind
func (k ErrorKind) String() string {
	switch k {
	case AuthFailure:
		return "AuthFailure"
	case BeginFailure:
		return "BeginFailure"
	case ConnectFailure:
		return "ConnectFailure"
	case ReceiveFailure:
		return "ReceiveFailure"
	case EndFailure:
		return "EndFailure"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is an abandoned update attempt
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an update error
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of an update error and whether err was one
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsAuthFailure checks if err is an AuthFailure
func IsAuthFailure(err error) bool {
	k, ok := KindOf(err)
	return ok && k == AuthFailure
}

// ParseErrorKind is the inverse of ErrorKind.String
func ParseErrorKind(s string) (ErrorKind, bool) {
	for k := AuthFailure; k <= EndFailure; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}
