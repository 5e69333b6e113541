// Package cooplock implements the operation journal behind crash-safe
// directory operations on object stores.
//
// Every multi-object mutation is described by a journal pair in a
// well-known lock directory: a small lock object holding the operation's
// lease record, and a log object holding the full plan of items the
// operation will touch. The pair is written before the first mutation and
// removed after the last one, so at any crash point the journal describes
// exactly what may be half-done. The lock object's lease is renewed
// periodically by the running client; a stale lease is how the offline
// repair tool (fsck) recognizes an abandoned operation.
package cooplock

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the type of a journaled operation.
type Kind string

const (
	// KindDelete is a recursive directory delete
	KindDelete Kind = "delete"

	// KindRename is a directory rename (copy-then-delete)
	KindRename Kind = "rename"
)

// Valid reports whether k is a known operation kind.
func (k Kind) Valid() bool {
	return k == KindDelete || k == KindRename
}

// ============================================================================
// Lock Records
// ============================================================================

// Record is the lease record stored in a lock object.
//
// A record is immutable; renewals and checkpoints replace the whole lock
// object content with a new record via a version-guarded write.
type Record interface {
	// RecordKind returns the operation kind
	RecordKind() Kind

	// Epoch returns lockEpochSeconds, the Unix time of the last renewal
	Epoch() int64

	// WithEpoch returns a copy of the record with a refreshed lease time
	WithEpoch(epochSeconds int64) Record
}

// DeleteRecord is the lock record of a recursive delete operation.
type DeleteRecord struct {
	Kind             Kind   `json:"kind"`
	LockEpochSeconds int64  `json:"lockEpochSeconds"`
	Resource         string `json:"resource"`
}

// NewDeleteRecord creates a delete lock record for the given directory
// path with the given lease time.
func NewDeleteRecord(resource string, epochSeconds int64) DeleteRecord {
	return DeleteRecord{
		Kind:             KindDelete,
		LockEpochSeconds: epochSeconds,
		Resource:         resource,
	}
}

// RecordKind returns KindDelete.
func (r DeleteRecord) RecordKind() Kind { return KindDelete }

// Epoch returns the lease time in Unix seconds.
func (r DeleteRecord) Epoch() int64 { return r.LockEpochSeconds }

// WithEpoch returns a copy of the record with a refreshed lease time.
func (r DeleteRecord) WithEpoch(epochSeconds int64) Record {
	r.LockEpochSeconds = epochSeconds
	return r
}

// RenameRecord is the lock record of a directory rename operation.
//
// CopySucceeded is the checkpoint flag: false while the copy phase is
// running, true once every destination object exists and only source
// cleanup remains. Repair decisions hinge on it.
type RenameRecord struct {
	Kind             Kind   `json:"kind"`
	LockEpochSeconds int64  `json:"lockEpochSeconds"`
	SrcResource      string `json:"srcResource"`
	DstResource      string `json:"dstResource"`
	CopySucceeded    bool   `json:"copySucceeded"`
}

// NewRenameRecord creates a rename lock record in the pre-checkpoint state.
func NewRenameRecord(src, dst string, epochSeconds int64) RenameRecord {
	return RenameRecord{
		Kind:             KindRename,
		LockEpochSeconds: epochSeconds,
		SrcResource:      src,
		DstResource:      dst,
	}
}

// RecordKind returns KindRename.
func (r RenameRecord) RecordKind() Kind { return KindRename }

// Epoch returns the lease time in Unix seconds.
func (r RenameRecord) Epoch() int64 { return r.LockEpochSeconds }

// WithEpoch returns a copy of the record with a refreshed lease time.
func (r RenameRecord) WithEpoch(epochSeconds int64) Record {
	r.LockEpochSeconds = epochSeconds
	return r
}

// ============================================================================
// Record Codec
// ============================================================================

// EncodeRecord serializes a record as single-line JSON with a trailing
// newline, the exact content of a lock object.
func EncodeRecord(r Record) ([]byte, error) {
	if err := validateRecord(r); err != nil {
		return nil, err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode lock record: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeRecord parses lock object content into a typed record.
//
// Returns:
//   - Record: DeleteRecord or RenameRecord depending on the kind field
//   - error: ErrMalformedRecord if the content is not valid JSON, names an
//     unknown kind, or fails record validation
func DecodeRecord(data []byte) (Record, error) {
	var head struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	switch head.Kind {
	case KindDelete:
		var rec DeleteRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		if err := validateRecord(rec); err != nil {
			return nil, err
		}
		return rec, nil

	case KindRename:
		var rec RenameRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		if err := validateRecord(rec); err != nil {
			return nil, err
		}
		return rec, nil

	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrMalformedRecord, head.Kind)
	}
}

func validateRecord(r Record) error {
	if r.Epoch() <= 0 {
		return fmt.Errorf("%w: missing lockEpochSeconds", ErrMalformedRecord)
	}

	switch rec := r.(type) {
	case DeleteRecord:
		if rec.Kind != KindDelete {
			return fmt.Errorf("%w: kind %q in delete record", ErrMalformedRecord, rec.Kind)
		}
		if rec.Resource == "" {
			return fmt.Errorf("%w: missing resource", ErrMalformedRecord)
		}
	case RenameRecord:
		if rec.Kind != KindRename {
			return fmt.Errorf("%w: kind %q in rename record", ErrMalformedRecord, rec.Kind)
		}
		if rec.SrcResource == "" || rec.DstResource == "" {
			return fmt.Errorf("%w: missing srcResource or dstResource", ErrMalformedRecord)
		}
	default:
		return fmt.Errorf("%w: unsupported record type %T", ErrMalformedRecord, r)
	}

	return nil
}
