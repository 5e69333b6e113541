package cooplock

import "errors"

var (
	// ErrLeaseLost indicates the lock object was rewritten or removed by
	// another process, so this process no longer owns the operation.
	ErrLeaseLost = errors.New("operation lease lost")

	// ErrMalformedRecord indicates a lock object whose content does not
	// parse as a valid lock record.
	ErrMalformedRecord = errors.New("malformed lock record")

	// ErrMalformedName indicates an object under the lock directory whose
	// key does not follow the journal naming convention.
	ErrMalformedName = errors.New("malformed journal object name")

	// ErrMalformedLog indicates a log object whose content does not parse
	// as a valid operation plan.
	ErrMalformedLog = errors.New("malformed operation log")
)
