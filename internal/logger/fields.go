package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so journal activity
// can be correlated per operation in aggregated logs.
const (
	// ========================================================================
	// Operation Identity
	// ========================================================================
	KeyOperationID = "operation_id" // unique id shared by the lock/log pair
	KeyKind        = "kind"         // operation kind: delete, rename
	KeyResource    = "resource"     // target path of a delete operation
	KeySrc         = "src"          // rename source prefix or item
	KeyDst         = "dst"          // rename destination prefix or item

	// ========================================================================
	// Storage
	// ========================================================================
	KeyBucket  = "bucket"  // bucket or store name
	KeyKey     = "key"     // object key
	KeyVersion = "version" // object version token

	// ========================================================================
	// Journal & Repair
	// ========================================================================
	KeyItems    = "items"    // number of plan items
	KeyBytes    = "bytes"    // total size of plan items
	KeyMode     = "mode"     // repair direction: rollForward, rollBack
	KeyAction   = "action"   // per-operation repair outcome
	KeyAge      = "age"      // lease age at classification time
	KeyAttempt  = "attempt"  // renewal retry attempt number
	KeySkipped  = "skipped"  // number of skipped operations
	KeyRepaired = "repaired" // number of repaired operations

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyPort       = "port"        // TCP listen port
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// OperationID returns a slog.Attr for the journal operation id
func OperationID(id string) slog.Attr {
	return slog.String(KeyOperationID, id)
}

// Kind returns a slog.Attr for the operation kind
func Kind(kind string) slog.Attr {
	return slog.String(KeyKind, kind)
}

// Resource returns a slog.Attr for a delete target path
func Resource(path string) slog.Attr {
	return slog.String(KeyResource, path)
}

// Src returns a slog.Attr for a rename source path
func Src(path string) slog.Attr {
	return slog.String(KeySrc, path)
}

// Dst returns a slog.Attr for a rename destination path
func Dst(path string) slog.Attr {
	return slog.String(KeyDst, path)
}

// Bucket returns a slog.Attr for a bucket or store name
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// Key returns a slog.Attr for an object key
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}

// Version returns a slog.Attr for an object version token
func Version(v string) slog.Attr {
	return slog.String(KeyVersion, v)
}

// Items returns a slog.Attr for a plan item count
func Items(n int) slog.Attr {
	return slog.Int(KeyItems, n)
}

// Bytes returns a slog.Attr for a total plan size in bytes
func Bytes(n int64) slog.Attr {
	return slog.Int64(KeyBytes, n)
}

// Mode returns a slog.Attr for a repair direction
func Mode(mode string) slog.Attr {
	return slog.String(KeyMode, mode)
}

// Action returns a slog.Attr for a per-operation repair outcome
func Action(action string) slog.Attr {
	return slog.String(KeyAction, action)
}

// Attempt returns a slog.Attr for a renewal retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// Age returns a slog.Attr for a lease age
func Age(age time.Duration) slog.Attr {
	return slog.String(KeyAge, age.Round(time.Second).String())
}

// Skipped returns a slog.Attr for a skipped-operation count
func Skipped(n int) slog.Attr {
	return slog.Int(KeySkipped, n)
}

// Repaired returns a slog.Attr for a repaired-operation count
func Repaired(n int) slog.Attr {
	return slog.Int(KeyRepaired, n)
}

// DurationMs returns a slog.Attr for a duration in milliseconds
func DurationMs(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMs, float64(d.Microseconds())/1000.0)
}

// Port returns a slog.Attr for a TCP listen port
func Port(n int) slog.Attr {
	return slog.Int(KeyPort, n)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
