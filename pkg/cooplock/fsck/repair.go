package fsck

import (
	"context"
	"fmt"
	"strings"

	"github.com/marmos91/coopfs/internal/logger"
	"github.com/marmos91/coopfs/pkg/cooplock"
	"github.com/marmos91/coopfs/pkg/store"
)

// action is the concrete repair an operation's state and the requested
// direction resolve to.
type action int

const (
	// actionDeleteRemaining finishes a recursive delete
	actionDeleteRemaining action = iota

	// actionCompleteRename finishes the copy phase, then deletes sources
	actionCompleteRename

	// actionUndoRename deletes whatever reached the destination
	actionUndoRename

	// actionDeleteSources deletes the sources of a checkpointed rename
	actionDeleteSources
)

func actionDetail(a action) string {
	switch a {
	case actionDeleteRemaining:
		return "delete remaining logged items"
	case actionCompleteRename:
		return "complete missing copies, then delete sources"
	case actionUndoRename:
		return "delete destination items"
	case actionDeleteSources:
		return "delete source items"
	default:
		return "unknown"
	}
}

// classify resolves an operation's record and the requested direction to a
// repair action, or to the reason the direction is unsafe.
//
// A delete can only roll forward: once items are gone there is nothing to
// restore them from. A rename hinges on the checkpoint flag: before it,
// the source tree is still complete, so both finishing the copies and
// wiping the destination are safe; after it, source deletion has begun and
// only rolling forward preserves the data.
func classify(rec cooplock.Record, direction Direction) (action, string) {
	switch r := rec.(type) {
	case cooplock.DeleteRecord:
		if direction == RollForward {
			return actionDeleteRemaining, ""
		}
		return 0, "delete cannot be rolled back: removed items are unrecoverable"

	case cooplock.RenameRecord:
		if r.CopySucceeded {
			if direction == RollForward {
				return actionDeleteSources, ""
			}
			return 0, "rename already checkpointed: rolling back would lose the destination"
		}
		if direction == RollForward {
			return actionCompleteRename, ""
		}
		return actionUndoRename, ""

	default:
		return 0, fmt.Sprintf("unclassifiable record type %T", rec)
	}
}

// execute applies the resolved action. Every step is idempotent, so a
// failed or interrupted execution is safe to re-run.
func (e *Engine) execute(ctx context.Context, act action, paths []string, pairs []cooplock.RenamePair) error {
	switch act {
	case actionDeleteRemaining:
		return e.deleteAll(ctx, paths)

	case actionCompleteRename:
		if err := e.completeCopies(ctx, pairs); err != nil {
			return err
		}
		return e.deleteAll(ctx, sources(pairs))

	case actionUndoRename:
		return e.deleteAll(ctx, destinations(pairs))

	case actionDeleteSources:
		return e.deleteAll(ctx, sources(pairs))

	default:
		return fmt.Errorf("unknown repair action %d", act)
	}
}

// deleteAll removes items children before parents. Missing items are
// expected: the log is a superset plan and the original process got
// partway through it.
func (e *Engine) deleteAll(ctx context.Context, keys []string) error {
	for i := len(keys) - 1; i >= 0; i-- {
		if err := e.store.Delete(ctx, keys[i]); err != nil {
			return fmt.Errorf("delete %s: %w", keys[i], err)
		}
	}
	return nil
}

// completeCopies re-runs the copy phase, copying only items whose
// destination is still missing and whose source still exists.
func (e *Engine) completeCopies(ctx context.Context, pairs []cooplock.RenamePair) error {
	for _, p := range pairs {
		dstExists, err := e.store.Exists(ctx, p.Dst)
		if err != nil {
			return fmt.Errorf("stat %s: %w", p.Dst, err)
		}
		if dstExists {
			continue
		}

		srcExists, err := e.store.Exists(ctx, p.Src)
		if err != nil {
			return fmt.Errorf("stat %s: %w", p.Src, err)
		}
		if !srcExists {
			logger.Debug("planned item no longer exists on either side",
				logger.Src(p.Src), logger.Dst(p.Dst))
			continue
		}

		if err := e.store.Copy(ctx, p.Src, p.Dst); err != nil {
			if store.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("copy %s -> %s: %w", p.Src, p.Dst, err)
		}
	}
	return nil
}

func sources(pairs []cooplock.RenamePair) []string {
	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Src
	}
	return keys
}

func destinations(pairs []cooplock.RenamePair) []string {
	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Dst
	}
	return keys
}

// hasPathPrefix compares bucket-relative paths, tolerating a leading slash
// on either side. The filter is a raw prefix, matching how object listing
// treats prefixes.
func hasPathPrefix(path, prefix string) bool {
	return strings.HasPrefix(strings.TrimPrefix(path, "/"), strings.TrimPrefix(prefix, "/"))
}
