package configstore

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a config error
type ErrorType int

const (
	// ErrTypeParse indicates the stored record could not be decoded or held
	// out-of-bound values
	ErrTypeParse ErrorType = iota
	// ErrTypeWrite indicates the record could not be written back
	ErrTypeWrite
	// ErrTypeValidation indicates a value exceeded its field bounds
	ErrTypeValidation
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeParse:
		return "ParseFailure"
	case ErrTypeWrite:
		return "WriteFailure"
	case ErrTypeValidation:
		return "ValidationFailure"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by the store and by validation.
type Error struct {
	Type    ErrorType
	Message string
	Path    string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Path != "" {
		msg += " (" + e.Path + ")"
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

// NewParseError creates a parse failure
func NewParseError(path, message string, err error) *Error {
	return &Error{Type: ErrTypeParse, Message: message, Path: path, Err: err}
}

// NewWriteError creates a write failure
func NewWriteError(path, message string, err error) *Error {
	return &Error{Type: ErrTypeWrite, Message: message, Path: path, Err: err}
}

// NewValidationError creates a bound violation
func NewValidationError(message string) *Error {
	return &Error{Type: ErrTypeValidation, Message: message}
}

func isType(err error, t ErrorType) bool {
	var cfgErr *Error
	return errors.As(err, &cfgErr) && cfgErr.Type == t
}

// IsParseError checks if err is a ParseFailure
func IsParseError(err error) bool {
	return isType(err, ErrTypeParse)
}

// IsWriteError checks if err is a WriteFailure
func IsWriteError(err error) bool {
	return isType(err, ErrTypeWrite)
}

// IsValidationError checks if err is a bound violation
func IsValidationError(err error) bool {
	return isType(err, ErrTypeValidation)
}
