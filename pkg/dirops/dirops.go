// Package dirops implements journaled directory operations on an object
// store: recursive delete and rename of a directory tree.
//
// Neither operation is atomic on an object store, so both run under the
// cooperative locking protocol: the full item plan is journaled before the
// first mutation, a background task keeps the operation's lease fresh, and
// progress is ordered so that the offline repair tool can always finish or
// undo an interrupted run from the journal alone. Renames copy parents
// before children and delete children before parents; the checkpoint
// between the copy and delete phases is the operation's point of no return.
package dirops

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marmos91/coopfs/internal/logger"
	"github.com/marmos91/coopfs/pkg/cooplock"
	"github.com/marmos91/coopfs/pkg/store"
)

// Metrics records operation outcomes. Implementations must be safe for
// concurrent use. A nil Metrics disables collection.
type Metrics interface {
	// ObserveOperation records one directory operation.
	//
	// Parameters:
	//   - kind: "rename" or "delete"
	//   - items: Number of objects in the operation's plan
	//   - duration: Wall time of the whole operation
	//   - err: Error if the operation failed, nil if successful
	ObserveOperation(kind string, items int, duration time.Duration, err error)
}

// Config contains configuration for directory operations.
type Config struct {
	// Store is the bucket to operate on
	Store store.Store

	// LockDir is the journal prefix (default "_lock/")
	LockDir string

	// Renewal configures background lease renewal
	Renewal cooplock.RenewerConfig

	// Metrics is an optional metrics collector
	Metrics Metrics
}

// Ops runs journaled directory operations against one bucket.
type Ops struct {
	store   store.Store
	journal *cooplock.Journal
	renewal cooplock.RenewerConfig
	metrics Metrics
}

// Result summarizes a completed directory operation.
type Result struct {
	// OperationID identifies the journal entry the operation ran under
	OperationID string

	// Items is the number of objects in the operation's plan
	Items int

	// Bytes is the total size of the planned objects, as listed at plan
	// time
	Bytes int64

	// Duration is the wall time of the operation
	Duration time.Duration
}

// New creates an Ops over the given store.
func New(cfg Config) (*Ops, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	journal, err := cooplock.New(cooplock.Config{
		Store:   cfg.Store,
		LockDir: cfg.LockDir,
	})
	if err != nil {
		return nil, err
	}

	return &Ops{
		store:   cfg.Store,
		journal: journal,
		renewal: cfg.Renewal,
		metrics: cfg.Metrics,
	}, nil
}

// ============================================================================
// Delete
// ============================================================================

// Delete recursively deletes the directory tree at path.
//
// The full set of objects under the path is listed and journaled first;
// deletion then proceeds children before parents so an interrupted run
// never leaves an orphaned subtree under an already-deleted parent marker.
// On failure the journal pair stays behind for fsck.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - path: Directory path, with or without trailing slash
//
// Returns:
//   - *Result: Operation summary
//   - error: Not-found if nothing exists under the path, ErrLeaseLost if
//     the operation's lease could not be kept fresh, or the first failed
//     step's error
func (o *Ops) Delete(ctx context.Context, path string) (*Result, error) {
	start := time.Now()
	res, err := o.delete(ctx, path)
	if o.metrics != nil {
		items := 0
		if res != nil {
			items = res.Items
		}
		o.metrics.ObserveOperation(string(cooplock.KindDelete), items, time.Since(start), err)
	}
	return res, err
}

func (o *Ops) delete(ctx context.Context, path string) (*Result, error) {
	start := time.Now()

	dir, err := o.normalizeDirPath(path)
	if err != nil {
		return nil, err
	}

	plan, planBytes, err := o.listObjects(ctx, dir)
	if err != nil {
		return nil, err
	}
	if len(plan) == 0 {
		return nil, store.NewNotFoundError(dir)
	}

	op, err := o.journal.BeginDelete(ctx, dir, plan)
	if err != nil {
		return nil, err
	}

	logger.Info("directory delete started",
		logger.OperationID(op.ID()),
		logger.Resource(dir),
		logger.Items(len(plan)),
		logger.Bytes(planBytes))

	opCtx, stop := op.StartRenewer(ctx, o.renewal)
	defer stop()

	// Children before parents
	for i := len(plan) - 1; i >= 0; i-- {
		if err := o.store.Delete(opCtx, plan[i]); err != nil {
			return nil, o.stepFailed(opCtx, op, fmt.Errorf("delete %s: %w", plan[i], err))
		}
	}

	stop()
	o.finish(ctx, op)

	result := &Result{
		OperationID: op.ID(),
		Items:       len(plan),
		Bytes:       planBytes,
		Duration:    time.Since(start),
	}

	logger.Info("directory delete completed",
		logger.OperationID(op.ID()),
		logger.Resource(dir),
		logger.Items(result.Items),
		logger.DurationMs(result.Duration))

	return result, nil
}

// ============================================================================
// Rename
// ============================================================================

// Rename renames the directory tree at src to dst by copying every object
// and then deleting the sources.
//
// The copy plan is journaled before the first copy. Copies run in listing
// order (parents before children); once all copies are confirmed the
// journal records the checkpoint and source deletion begins, children
// before parents. On failure the journal pair stays behind for fsck, and
// which repair direction is safe follows from whether the checkpoint was
// reached.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - src: Source directory path
//   - dst: Destination directory path; nothing may exist under it yet
//
// Returns:
//   - *Result: Operation summary
//   - error: Not-found if nothing exists under src, already-exists if the
//     destination is occupied, ErrLeaseLost if the operation's lease could
//     not be kept fresh, or the first failed step's error
func (o *Ops) Rename(ctx context.Context, src, dst string) (*Result, error) {
	start := time.Now()
	res, err := o.rename(ctx, src, dst)
	if o.metrics != nil {
		items := 0
		if res != nil {
			items = res.Items
		}
		o.metrics.ObserveOperation(string(cooplock.KindRename), items, time.Since(start), err)
	}
	return res, err
}

func (o *Ops) rename(ctx context.Context, src, dst string) (*Result, error) {
	start := time.Now()

	srcDir, err := o.normalizeDirPath(src)
	if err != nil {
		return nil, err
	}
	dstDir, err := o.normalizeDirPath(dst)
	if err != nil {
		return nil, err
	}
	if srcDir == dstDir {
		return nil, store.NewInvalidArgumentError("source and destination are the same path")
	}
	if strings.HasPrefix(dstDir, srcDir) || strings.HasPrefix(srcDir, dstDir) {
		return nil, store.NewInvalidArgumentError("source and destination must not nest")
	}

	srcKeys, srcBytes, err := o.listObjects(ctx, srcDir)
	if err != nil {
		return nil, err
	}
	if len(srcKeys) == 0 {
		return nil, store.NewNotFoundError(srcDir)
	}

	dstKeys, _, err := o.listObjects(ctx, dstDir)
	if err != nil {
		return nil, err
	}
	if len(dstKeys) > 0 {
		return nil, store.NewAlreadyExistsError(dstDir)
	}

	pairs := make([]cooplock.RenamePair, len(srcKeys))
	for i, key := range srcKeys {
		pairs[i] = cooplock.RenamePair{
			Src: key,
			Dst: dstDir + strings.TrimPrefix(key, srcDir),
		}
	}

	op, err := o.journal.BeginRename(ctx, srcDir, dstDir, pairs)
	if err != nil {
		return nil, err
	}

	logger.Info("directory rename started",
		logger.OperationID(op.ID()),
		logger.Src(srcDir),
		logger.Dst(dstDir),
		logger.Items(len(pairs)),
		logger.Bytes(srcBytes))

	opCtx, stop := op.StartRenewer(ctx, o.renewal)
	defer stop()

	// Copy phase, parents before children
	for _, pair := range pairs {
		if err := o.store.Copy(opCtx, pair.Src, pair.Dst); err != nil {
			return nil, o.stepFailed(opCtx, op, fmt.Errorf("copy %s -> %s: %w", pair.Src, pair.Dst, err))
		}
	}

	// Point of no return: after this, repair completes the rename instead
	// of undoing it
	if err := op.Checkpoint(opCtx); err != nil {
		return nil, o.stepFailed(opCtx, op, err)
	}

	// Delete phase, children before parents
	for i := len(pairs) - 1; i >= 0; i-- {
		if err := o.store.Delete(opCtx, pairs[i].Src); err != nil {
			return nil, o.stepFailed(opCtx, op, fmt.Errorf("delete %s: %w", pairs[i].Src, err))
		}
	}

	stop()
	o.finish(ctx, op)

	result := &Result{
		OperationID: op.ID(),
		Items:       len(pairs),
		Bytes:       srcBytes,
		Duration:    time.Since(start),
	}

	logger.Info("directory rename completed",
		logger.OperationID(op.ID()),
		logger.Src(srcDir),
		logger.Dst(dstDir),
		logger.Items(result.Items),
		logger.DurationMs(result.Duration))

	return result, nil
}

// ============================================================================
// Helpers
// ============================================================================

// normalizeDirPath converts a user-supplied directory path into prefix
// form: no leading slash, exactly one trailing slash, and outside the
// journal namespace.
func (o *Ops) normalizeDirPath(path string) (string, error) {
	p := strings.TrimPrefix(path, "/")
	if p == "" {
		return "", store.NewInvalidArgumentError("directory path must not be empty")
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	lockDir := o.journal.LockDir()
	if strings.HasPrefix(p, lockDir) || strings.HasPrefix(lockDir, p) {
		return "", store.NewInvalidArgumentError(fmt.Sprintf("directory path %q overlaps the journal directory %q", p, lockDir))
	}
	return p, nil
}

// listObjects returns the keys under prefix in listing order, plus their
// total size.
func (o *Ops) listObjects(ctx context.Context, prefix string) ([]string, int64, error) {
	infos, err := o.store.List(ctx, prefix)
	if err != nil {
		return nil, 0, err
	}

	keys := make([]string, len(infos))
	var bytes int64
	for i, info := range infos {
		keys[i] = info.Key
		bytes += info.Size
	}
	return keys, bytes, nil
}

// stepFailed maps a failed operation step to the error the caller should
// see. A lost lease outranks the step's own error: the step most likely
// failed because the renewer cancelled the operation context.
func (o *Ops) stepFailed(opCtx context.Context, op *cooplock.Operation, err error) error {
	if cause := context.Cause(opCtx); cause != nil && errors.Is(cause, cooplock.ErrLeaseLost) {
		err = cause
	}

	logger.Error("directory operation failed, journal left for repair",
		logger.OperationID(op.ID()),
		logger.Key(op.LockKey()),
		logger.Err(err))

	return fmt.Errorf("operation %s: %w", op.ID(), err)
}

// finish removes the journal pair. Failure to do so is harmless: repair
// recognizes a completed operation by the absence of remaining work.
func (o *Ops) finish(ctx context.Context, op *cooplock.Operation) {
	if err := op.Finish(ctx); err != nil {
		logger.Warn("failed to remove journal pair after completed operation",
			logger.OperationID(op.ID()),
			logger.Err(err))
	}
}
