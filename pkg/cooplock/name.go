package cooplock

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultLockDir is the well-known journal prefix in a bucket.
	DefaultLockDir = "_lock/"

	// TimestampLayout renders journal timestamps as UTC with millisecond
	// precision, e.g. "20200320T084512.314Z". The trailing Z is literal.
	TimestampLayout = "20060102T150405.000Z"

	// LockExt is the lock object suffix.
	LockExt = ".lock"

	// LogExt is the log object suffix.
	LogExt = ".log"
)

// pairNameRe matches journal object basenames:
// <timestamp>_<kind>_<operationId>.<lock|log>
var pairNameRe = regexp.MustCompile(`^(\d{8}T\d{6}\.\d{3}Z)_(delete|rename)_([a-z0-9-]+)\.(lock|log)$`)

// PairName identifies one journal pair. Both objects of a pair share the
// same basename and differ only in extension.
type PairName struct {
	// Timestamp is when the operation started, UTC, millisecond precision
	Timestamp time.Time

	// Kind is the operation kind, repeated in the name so repair tooling
	// can classify without reading the record
	Kind Kind

	// OperationID is the operation's unique identifier
	OperationID string
}

// NewPairName builds the name of a new journal pair starting at now.
func NewPairName(kind Kind, operationID string, now time.Time) PairName {
	return PairName{
		Timestamp:   now.UTC().Truncate(time.Millisecond),
		Kind:        kind,
		OperationID: operationID,
	}
}

// Base returns the shared basename without extension.
func (n PairName) Base() string {
	return fmt.Sprintf("%s_%s_%s", n.Timestamp.UTC().Format(TimestampLayout), n.Kind, n.OperationID)
}

// LockKey returns the lock object key under the given lock directory.
func (n PairName) LockKey(lockDir string) string {
	return lockDir + n.Base() + LockExt
}

// LogKey returns the log object key under the given lock directory.
func (n PairName) LogKey(lockDir string) string {
	return lockDir + n.Base() + LogExt
}

// ParsePairKey parses an object key under lockDir into its pair name and
// extension.
//
// Returns:
//   - PairName: Parsed timestamp, kind and operation ID
//   - string: LockExt or LogExt
//   - error: ErrMalformedName if the key is outside lockDir or does not
//     follow the naming convention
func ParsePairKey(lockDir, key string) (PairName, string, error) {
	base, ok := strings.CutPrefix(key, lockDir)
	if !ok {
		return PairName{}, "", fmt.Errorf("%w: key %q not under %q", ErrMalformedName, key, lockDir)
	}

	m := pairNameRe.FindStringSubmatch(base)
	if m == nil {
		return PairName{}, "", fmt.Errorf("%w: %q", ErrMalformedName, base)
	}

	ts, err := time.Parse(TimestampLayout, m[1])
	if err != nil {
		return PairName{}, "", fmt.Errorf("%w: bad timestamp in %q: %v", ErrMalformedName, base, err)
	}

	return PairName{
		Timestamp:   ts,
		Kind:        Kind(m[2]),
		OperationID: m[3],
	}, "." + m[4], nil
}

// NormalizeLockDir applies the default and guarantees a trailing slash so
// the lock directory is always a clean listing prefix.
func NormalizeLockDir(dir string) string {
	if dir == "" {
		return DefaultLockDir
	}
	if !strings.HasSuffix(dir, "/") {
		return dir + "/"
	}
	return dir
}
