package fsck

import (
	"time"

	"github.com/marmos91/coopfs/pkg/cooplock"
)

// Status classifies the outcome of one journal entry in a repair run.
type Status string

const (
	// StatusRepaired means the operation was completed or undone and its
	// journal pair removed.
	StatusRepaired Status = "repaired"

	// StatusWouldRepair means check mode found a repairable operation.
	StatusWouldRepair Status = "would-repair"

	// StatusSkippedFresh means the lease is still fresh, so the operation
	// may be live and was left alone.
	StatusSkippedFresh Status = "skipped-fresh"

	// StatusSkippedUnsafe means the requested direction is not safe for
	// the operation's observed state.
	StatusSkippedUnsafe Status = "skipped-unsafe"

	// StatusForeign means an object in the lock directory does not follow
	// the journal naming convention and was ignored.
	StatusForeign Status = "foreign"

	// StatusMalformed means the journal entry parses as a pair but its
	// record or log content is unusable.
	StatusMalformed Status = "malformed"

	// StatusLostRace means another process took the operation over while
	// this run was acting on it.
	StatusLostRace Status = "lost-race"

	// StatusFailed means repair was attempted but a step or the journal
	// cleanup failed; the journal stays behind for the next run.
	StatusFailed Status = "failed"
)

// Entry is the outcome for one object or journal pair found in the scan.
type Entry struct {
	// OperationID identifies the operation, empty for foreign objects
	OperationID string `json:"operationId" yaml:"operationId"`

	// Kind is the operation kind, empty for foreign objects
	Kind cooplock.Kind `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Resource is the operation's target: the directory of a delete, or
	// "src -> dst" for a rename. Empty when the lock record was unreadable.
	Resource string `json:"resource,omitempty" yaml:"resource,omitempty"`

	// Status is the outcome
	Status Status `json:"status" yaml:"status"`

	// Detail is a human-readable explanation
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`

	// Key is the lock object key, or the offending key for foreign objects
	Key string `json:"key" yaml:"key"`

	// Items is the number of items in the operation's plan
	Items int `json:"items" yaml:"items"`

	// Age is how stale the lease was at scan time
	Age time.Duration `json:"age" yaml:"age"`
}

// Report is the result of one repair run over a bucket.
type Report struct {
	// Bucket is the scanned bucket in URI form
	Bucket string `json:"bucket" yaml:"bucket"`

	// Direction is the requested repair direction
	Direction Direction `json:"direction" yaml:"direction"`

	// Check is true when the run only classified without mutating
	Check bool `json:"check" yaml:"check"`

	// Entries holds one outcome per journal pair or foreign object
	Entries []Entry `json:"entries" yaml:"entries"`

	// Duration is the wall time of the run
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Count returns how many entries have the given status.
func (r *Report) Count(status Status) int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

// Ok reports whether every candidate operation was classified and repaired.
// Unsafe-direction skips, malformed records, and failed repairs make the
// run unsuccessful; foreign objects, fresh leases, and lost races do not.
func (r *Report) Ok() bool {
	for _, e := range r.Entries {
		switch e.Status {
		case StatusSkippedUnsafe, StatusMalformed, StatusFailed:
			return false
		}
	}
	return true
}
