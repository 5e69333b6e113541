package cooplock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/coopfs/internal/logger"
	"github.com/marmos91/coopfs/pkg/store"
)

// Config contains configuration for a Journal.
type Config struct {
	// Store is the bucket the journal lives in
	Store store.Store

	// LockDir is the journal prefix (default "_lock/")
	LockDir string

	// Now overrides the clock, for tests (default time.Now)
	Now func() time.Time
}

// Journal creates and maintains operation journal pairs in one bucket.
//
// Thread Safety:
// A Journal is safe for concurrent use; each returned Operation serializes
// its own lease updates internally.
type Journal struct {
	store   store.Store
	lockDir string
	now     func() time.Time
}

// New creates a Journal over the given store.
func New(cfg Config) (*Journal, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Journal{
		store:   cfg.Store,
		lockDir: NormalizeLockDir(cfg.LockDir),
		now:     now,
	}, nil
}

// LockDir returns the journal prefix, always with a trailing slash.
func (j *Journal) LockDir() string {
	return j.lockDir
}

// BeginDelete journals a new recursive delete of resource covering the
// given keys, then returns the live operation handle.
//
// The lock object is created first, then the log with the full plan. Only
// after both exist may the caller start deleting items. If writing the log
// fails the half-created lock is removed again on a best-effort basis.
func (j *Journal) BeginDelete(ctx context.Context, resource string, paths []string) (*Operation, error) {
	rec := NewDeleteRecord(resource, j.now().Unix())
	return j.begin(ctx, rec, EncodeDeleteLog(paths))
}

// BeginRename journals a new rename of src to dst covering the given copy
// plan, then returns the live operation handle.
func (j *Journal) BeginRename(ctx context.Context, src, dst string, pairs []RenamePair) (*Operation, error) {
	rec := NewRenameRecord(src, dst, j.now().Unix())
	return j.begin(ctx, rec, EncodeRenameLog(pairs))
}

func (j *Journal) begin(ctx context.Context, rec Record, logData []byte) (*Operation, error) {
	name := NewPairName(rec.RecordKind(), uuid.NewString(), j.now())

	lockData, err := EncodeRecord(rec)
	if err != nil {
		return nil, err
	}

	lockKey := name.LockKey(j.lockDir)
	lockVersion, err := j.store.Create(ctx, lockKey, lockData)
	if err != nil {
		return nil, fmt.Errorf("create lock object %s: %w", lockKey, err)
	}

	logKey := name.LogKey(j.lockDir)
	if _, err := j.store.Create(ctx, logKey, logData); err != nil {
		if delErr := j.store.Delete(ctx, lockKey); delErr != nil {
			logger.Warn("failed to remove lock after log write failure",
				logger.Key(lockKey), logger.Err(delErr))
		}
		return nil, fmt.Errorf("create log object %s: %w", logKey, err)
	}

	logger.Debug("journaled operation",
		logger.OperationID(name.OperationID),
		logger.Kind(string(rec.RecordKind())),
		logger.Key(lockKey))

	return &Operation{
		journal:     j,
		name:        name,
		record:      rec,
		lockVersion: lockVersion,
	}, nil
}

// ============================================================================
// Operation
// ============================================================================

// Operation is the live handle of a journaled operation owned by this
// process. It tracks the lock object's version so every lease update is a
// compare-and-swap against the state this process last wrote; losing that
// race means losing ownership.
type Operation struct {
	journal *Journal
	name    PairName

	mu          sync.Mutex
	record      Record
	lockVersion store.Version
}

// ID returns the operation identifier.
func (op *Operation) ID() string {
	return op.name.OperationID
}

// Name returns the journal pair name.
func (op *Operation) Name() PairName {
	return op.name
}

// LockKey returns the lock object key.
func (op *Operation) LockKey() string {
	return op.name.LockKey(op.journal.lockDir)
}

// LogKey returns the log object key.
func (op *Operation) LogKey() string {
	return op.name.LogKey(op.journal.lockDir)
}

// Record returns the last record this process wrote to the lock object.
func (op *Operation) Record() Record {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.record
}

// Renew refreshes the lease by rewriting the lock record with the current
// time, guarded by the last known lock version.
//
// A guard failure is not immediately fatal: the lock is re-read, and when
// its content is still the record this process last wrote, the mismatch was
// only this process's own write observed under a newer version token, so
// the token is adopted and the renewal retried once. Any other content
// means another process took the operation over.
//
// Returns:
//   - error: ErrLeaseLost if the lock was rewritten or removed by another
//     process, or context/IO errors
func (op *Operation) Renew(ctx context.Context) error {
	op.mu.Lock()
	defer op.mu.Unlock()

	rec := op.record.WithEpoch(op.journal.now().Unix())
	err := op.writeRecord(ctx, rec)
	if err == nil {
		return nil
	}
	if !store.IsPreconditionFailed(err) {
		if store.IsNotFound(err) {
			return fmt.Errorf("%w: %v", ErrLeaseLost, err)
		}
		return fmt.Errorf("renew lock object %s: %w", op.LockKey(), err)
	}

	data, v, err := op.journal.store.Read(ctx, op.LockKey())
	if err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("%w: lock object removed", ErrLeaseLost)
		}
		return fmt.Errorf("re-read lock object %s: %w", op.LockKey(), err)
	}

	current, err := DecodeRecord(data)
	if err != nil || current != op.record {
		return fmt.Errorf("%w: lock object rewritten by another process", ErrLeaseLost)
	}

	op.lockVersion = v
	rec = op.record.WithEpoch(op.journal.now().Unix())
	if err := op.writeRecord(ctx, rec); err != nil {
		if store.IsPreconditionFailed(err) || store.IsNotFound(err) {
			return fmt.Errorf("%w: %v", ErrLeaseLost, err)
		}
		return fmt.Errorf("renew lock object %s: %w", op.LockKey(), err)
	}
	return nil
}

// Checkpoint marks the rename's copy phase complete: the record is
// rewritten with copySucceeded=true and a fresh lease time. After the
// checkpoint, repair rolls forward by deleting sources instead of
// re-copying.
//
// Returns:
//   - error: If the operation is not a rename, ErrLeaseLost on lost
//     ownership, or context/IO errors
func (op *Operation) Checkpoint(ctx context.Context) error {
	op.mu.Lock()
	defer op.mu.Unlock()

	rec, ok := op.record.(RenameRecord)
	if !ok {
		return fmt.Errorf("checkpoint on %s operation", op.record.RecordKind())
	}

	rec.CopySucceeded = true
	rec.LockEpochSeconds = op.journal.now().Unix()
	if err := op.writeRecord(ctx, rec); err != nil {
		if store.IsPreconditionFailed(err) || store.IsNotFound(err) {
			return fmt.Errorf("%w: %v", ErrLeaseLost, err)
		}
		return fmt.Errorf("checkpoint lock object %s: %w", op.LockKey(), err)
	}

	logger.Debug("rename checkpoint recorded", logger.OperationID(op.ID()))
	return nil
}

// writeRecord rewrites the lock object guarded by the tracked version and
// advances it on success. Callers must hold op.mu and interpret guard
// failures themselves.
func (op *Operation) writeRecord(ctx context.Context, rec Record) error {
	data, err := EncodeRecord(rec)
	if err != nil {
		return err
	}

	v, err := op.journal.store.Update(ctx, op.LockKey(), data, op.lockVersion)
	if err != nil {
		return err
	}

	op.record = rec
	op.lockVersion = v
	return nil
}

// Finish removes the journal pair after all planned mutations completed,
// log first so a crash in between leaves a lock without a log rather than
// a log without a lock.
func (op *Operation) Finish(ctx context.Context) error {
	logKey := op.LogKey()
	if err := op.journal.store.Delete(ctx, logKey); err != nil {
		return fmt.Errorf("remove log object %s: %w", logKey, err)
	}

	lockKey := op.LockKey()
	if err := op.journal.store.Delete(ctx, lockKey); err != nil {
		return fmt.Errorf("remove lock object %s: %w", lockKey, err)
	}

	logger.Debug("journal pair removed", logger.OperationID(op.ID()))
	return nil
}
