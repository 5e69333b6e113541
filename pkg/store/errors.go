package store

import (
	"errors"
	"fmt"
)

// ============================================================================
// Error Codes
// ============================================================================

// ErrorCode identifies the category of a store failure.
type ErrorCode int

const (
	// ErrUnknown indicates an unclassified error
	ErrUnknown ErrorCode = iota

	// ErrNotFound indicates the object does not exist
	ErrNotFound

	// ErrAlreadyExists indicates a conditional create lost to an existing object
	ErrAlreadyExists

	// ErrPreconditionFailed indicates a version-guarded update lost a race
	ErrPreconditionFailed

	// ErrInvalidArgument indicates a malformed key or parameter
	ErrInvalidArgument

	// ErrIO indicates a backend or transport failure
	ErrIO
)

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrAlreadyExists:
		return "ALREADY_EXISTS"
	case ErrPreconditionFailed:
		return "PRECONDITION_FAILED"
	case ErrInvalidArgument:
		return "INVALID_ARGUMENT"
	case ErrIO:
		return "IO_ERROR"
	default:
		return "UNKNOWN"
	}
}

// ============================================================================
// StoreError
// ============================================================================

// StoreError is the error type returned by all Store implementations for
// domain failures, carrying a code callers can branch on and the key that
// was involved.
type StoreError struct {
	// Code classifies the failure
	Code ErrorCode

	// Message is a human-readable description
	Message string

	// Key is the object key involved, if any
	Key string

	// Err is the underlying backend error, if any
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: %s (key: %s)", e.Code, e.Message, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying backend error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// ============================================================================
// Error Factories
// ============================================================================

// NewNotFoundError creates an error for a missing object.
func NewNotFoundError(key string) *StoreError {
	return &StoreError{
		Code:    ErrNotFound,
		Message: "object not found",
		Key:     key,
	}
}

// NewAlreadyExistsError creates an error for a conditional create that lost
// to an existing object.
func NewAlreadyExistsError(key string) *StoreError {
	return &StoreError{
		Code:    ErrAlreadyExists,
		Message: "object already exists",
		Key:     key,
	}
}

// NewPreconditionFailedError creates an error for a version-guarded update
// that observed a different current version.
func NewPreconditionFailedError(key string, expect Version) *StoreError {
	return &StoreError{
		Code:    ErrPreconditionFailed,
		Message: fmt.Sprintf("version mismatch (expected %s)", expect),
		Key:     key,
	}
}

// NewInvalidArgumentError creates an error for a malformed key or parameter.
func NewInvalidArgumentError(message string) *StoreError {
	return &StoreError{
		Code:    ErrInvalidArgument,
		Message: message,
	}
}

// NewIOError creates an error wrapping a backend or transport failure.
func NewIOError(message, key string, err error) *StoreError {
	return &StoreError{
		Code:    ErrIO,
		Message: message,
		Key:     key,
		Err:     err,
	}
}

// ============================================================================
// Error Classification
// ============================================================================

// IsNotFound reports whether err indicates a missing object.
func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound)
}

// IsAlreadyExists reports whether err indicates a lost conditional create.
func IsAlreadyExists(err error) bool {
	return hasCode(err, ErrAlreadyExists)
}

// IsPreconditionFailed reports whether err indicates a lost version-guarded
// update.
func IsPreconditionFailed(err error) bool {
	return hasCode(err, ErrPreconditionFailed)
}

func hasCode(err error, code ErrorCode) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
