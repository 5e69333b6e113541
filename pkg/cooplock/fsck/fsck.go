// Package fsck implements the offline repair engine for interrupted
// directory operations.
//
// The engine scans a bucket's lock directory for journal pairs whose lease
// has gone stale, classifies each abandoned operation from its lock record
// alone, and either completes it (roll-forward) or undoes it (roll-back).
// Every destructive step is idempotent, so an interrupted or repeated
// repair run converges to the same end state. Operations whose lease is
// still fresh are never touched: their owner may simply be slow.
//
// The requested direction must be safe for an operation's observed state.
// A recursive delete can only roll forward, and a rename that has passed
// its copy checkpoint can no longer roll back; such conflicts are reported
// and skipped, never guessed at.
package fsck

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/marmos91/coopfs/internal/logger"
	"github.com/marmos91/coopfs/pkg/cooplock"
	"github.com/marmos91/coopfs/pkg/store"
)

// Direction selects how abandoned operations are repaired.
type Direction string

const (
	// RollForward completes interrupted operations.
	RollForward Direction = "rollForward"

	// RollBack undoes interrupted operations where still possible.
	RollBack Direction = "rollBack"
)

// Metrics records repair outcomes. Implementations must be safe for
// concurrent use. A nil Metrics disables collection.
type Metrics interface {
	// ObserveRepair records one attempted repair.
	//
	// Parameters:
	//   - kind: "rename" or "delete"
	//   - direction: "rollForward" or "rollBack"
	//   - duration: Wall time spent on this operation
	//   - err: Error if the repair failed, nil if it completed
	ObserveRepair(kind, direction string, duration time.Duration, err error)
}

// Config contains configuration for a repair run.
type Config struct {
	// Store is the bucket to scan and repair
	Store store.Store

	// LockDir is the journal prefix (default "_lock/")
	LockDir string

	// ExpirationTimeout is how stale a lease must be before its operation
	// counts as abandoned. Zero treats every lock as already expired,
	// which makes repair runs deterministic in tests.
	ExpirationTimeout time.Duration

	// PrefixFilter optionally restricts the run to operations whose
	// resource paths fall under this prefix
	PrefixFilter string

	// OperationID optionally restricts the run to a single operation
	OperationID string

	// Check classifies and reports without mutating anything
	Check bool

	// Now overrides the clock, for tests (default time.Now)
	Now func() time.Time

	// Metrics is an optional metrics collector
	Metrics Metrics
}

// Engine is the repair engine over one bucket.
type Engine struct {
	store        store.Store
	lockDir      string
	timeout      time.Duration
	prefixFilter string
	operationID  string
	check        bool
	now          func() time.Time
	metrics      Metrics
}

// New creates a repair engine from the given configuration.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.ExpirationTimeout < 0 {
		return nil, fmt.Errorf("expiration timeout must not be negative")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		store:        cfg.Store,
		lockDir:      cooplock.NormalizeLockDir(cfg.LockDir),
		timeout:      cfg.ExpirationTimeout,
		prefixFilter: cfg.PrefixFilter,
		operationID:  cfg.OperationID,
		check:        cfg.Check,
		now:          now,
		metrics:      cfg.Metrics,
	}, nil
}

// Run scans the lock directory and repairs every abandoned operation the
// requested direction is safe for.
//
// Returns:
//   - *Report: Per-operation outcomes; Report.Ok tells whether every
//     candidate was repaired
//   - error: Only for run-level failures such as an unlistable bucket;
//     per-operation problems are reported in the Report instead
func (e *Engine) Run(ctx context.Context, direction Direction) (*Report, error) {
	if direction != RollForward && direction != RollBack {
		return nil, fmt.Errorf("unknown repair direction %q", direction)
	}

	start := e.now()
	report := &Report{
		Bucket:    e.store.Name(),
		Direction: direction,
		Check:     e.check,
	}

	logger.Info("repair scan started",
		logger.Bucket(report.Bucket),
		logger.Mode(string(direction)),
		logger.Key(e.lockDir))

	infos, err := e.store.List(ctx, e.lockDir)
	if err != nil {
		return nil, fmt.Errorf("list lock directory %s: %w", e.lockDir, err)
	}

	for _, p := range e.groupPairs(infos, report) {
		if entry := e.processPair(ctx, direction, p); entry != nil {
			report.Entries = append(report.Entries, *entry)
		}
	}

	report.Duration = e.now().Sub(start)

	logger.Info("repair scan finished",
		logger.Bucket(report.Bucket),
		logger.Mode(string(direction)),
		logger.Repaired(report.Count(StatusRepaired)),
		logger.Skipped(report.Count(StatusSkippedUnsafe)+report.Count(StatusSkippedFresh)),
		logger.DurationMs(report.Duration))

	return report, nil
}

// pair is one journal pair (or half of one) discovered by the scan.
type pair struct {
	name    cooplock.PairName
	lockKey string
	logKey  string
	hasLock bool
	hasLog  bool
}

// groupPairs matches lock and log objects by basename. Objects that do not
// follow the naming convention are reported as foreign and ignored.
func (e *Engine) groupPairs(infos []store.ObjectInfo, report *Report) []pair {
	byBase := make(map[string]*pair)
	var order []string

	for _, info := range infos {
		name, ext, err := cooplock.ParsePairKey(e.lockDir, info.Key)
		if err != nil {
			logger.Warn("ignoring foreign object in lock directory", logger.Key(info.Key))
			report.Entries = append(report.Entries, Entry{
				Status: StatusForeign,
				Key:    info.Key,
				Detail: "not a journal object",
			})
			continue
		}

		base := name.Base()
		p, ok := byBase[base]
		if !ok {
			p = &pair{
				name:    name,
				lockKey: name.LockKey(e.lockDir),
				logKey:  name.LogKey(e.lockDir),
			}
			byBase[base] = p
			order = append(order, base)
		}
		if ext == cooplock.LockExt {
			p.hasLock = true
		} else {
			p.hasLog = true
		}
	}

	// Lexical order is chronological order for journal names
	sort.Strings(order)

	pairs := make([]pair, 0, len(order))
	for _, base := range order {
		pairs = append(pairs, *byBase[base])
	}
	return pairs
}

// processPair decides and applies the outcome for one journal pair. It
// returns nil when the pair is filtered out of the run's scope.
func (e *Engine) processPair(ctx context.Context, direction Direction, p pair) *Entry {
	if e.operationID != "" && p.name.OperationID != e.operationID {
		return nil
	}

	entry := &Entry{
		OperationID: p.name.OperationID,
		Kind:        p.name.Kind,
		Key:         p.lockKey,
	}

	// A log without a lock means the operation already finished; only the
	// journal removal was cut short.
	if !p.hasLock {
		if e.check {
			entry.Status = StatusWouldRepair
			entry.Detail = "orphan log would be removed"
			return entry
		}
		if err := e.store.Delete(ctx, p.logKey); err != nil {
			entry.Status = StatusFailed
			entry.Detail = fmt.Sprintf("remove orphan log: %v", err)
			return entry
		}
		entry.Status = StatusRepaired
		entry.Detail = "orphan log removed"
		return entry
	}

	lockData, lockVersion, err := e.store.Read(ctx, p.lockKey)
	if err != nil {
		if store.IsNotFound(err) {
			entry.Status = StatusLostRace
			entry.Detail = "lock vanished during scan"
			return entry
		}
		entry.Status = StatusFailed
		entry.Detail = fmt.Sprintf("read lock record: %v", err)
		return entry
	}

	rec, err := cooplock.DecodeRecord(lockData)
	if err != nil {
		entry.Status = StatusMalformed
		entry.Detail = err.Error()
		return entry
	}
	if rec.RecordKind() != p.name.Kind {
		entry.Status = StatusMalformed
		entry.Detail = fmt.Sprintf("record kind %q disagrees with name kind %q", rec.RecordKind(), p.name.Kind)
		return entry
	}
	entry.Resource = resourceOf(rec)

	if !e.matchesPrefix(rec) {
		return nil
	}

	entry.Age = e.now().Sub(time.Unix(rec.Epoch(), 0))
	if e.timeout > 0 && entry.Age < e.timeout {
		entry.Status = StatusSkippedFresh
		entry.Detail = fmt.Sprintf("lease renewed %s ago", entry.Age.Round(time.Second))
		return entry
	}

	// A lock without a log means either nothing was mutated yet or
	// everything finished; removing the pair is safe either way.
	if !p.hasLog {
		return e.cleanupOnly(ctx, p, entry, "incomplete journal removed")
	}

	paths, pairs, malformed := e.readPlan(ctx, p, rec)
	if malformed != "" {
		entry.Status = StatusMalformed
		entry.Detail = malformed
		return entry
	}
	if paths == nil && pairs == nil {
		// Log vanished between listing and read: treat like a lock
		// without a log
		return e.cleanupOnly(ctx, p, entry, "incomplete journal removed")
	}
	entry.Items = len(paths) + len(pairs)

	act, unsafeReason := classify(rec, direction)
	if unsafeReason != "" {
		logger.Warn("unsafe repair direction for operation",
			logger.OperationID(entry.OperationID),
			logger.Kind(string(entry.Kind)),
			logger.Mode(string(direction)))
		entry.Status = StatusSkippedUnsafe
		entry.Detail = unsafeReason
		return entry
	}

	if e.check {
		entry.Status = StatusWouldRepair
		entry.Detail = actionDetail(act)
		return entry
	}

	// Take ownership before any destructive step: bumping the lease via a
	// version-guarded write fences out a renewer that is not actually
	// dead, and loses cleanly to a concurrent repairer.
	if err := e.takeOwnership(ctx, p, rec, lockVersion); err != nil {
		if store.IsPreconditionFailed(err) || store.IsNotFound(err) {
			entry.Status = StatusLostRace
			entry.Detail = "operation taken over by another process"
			return entry
		}
		entry.Status = StatusFailed
		entry.Detail = fmt.Sprintf("take ownership: %v", err)
		return entry
	}

	repairStart := e.now()
	err = e.execute(ctx, act, paths, pairs)
	if err == nil {
		err = e.removePair(ctx, p)
	}
	if e.metrics != nil {
		e.metrics.ObserveRepair(string(entry.Kind), string(direction), e.now().Sub(repairStart), err)
	}
	if err != nil {
		logger.Error("repair failed, journal left in place",
			logger.OperationID(entry.OperationID),
			logger.Err(err))
		entry.Status = StatusFailed
		entry.Detail = err.Error()
		return entry
	}

	logger.Info("operation repaired",
		logger.OperationID(entry.OperationID),
		logger.Kind(string(entry.Kind)),
		logger.Mode(string(direction)),
		logger.Action(actionDetail(act)),
		logger.Items(entry.Items),
		logger.Age(entry.Age))

	entry.Status = StatusRepaired
	entry.Detail = actionDetail(act)
	return entry
}

// cleanupOnly removes a journal with no remaining work.
func (e *Engine) cleanupOnly(ctx context.Context, p pair, entry *Entry, detail string) *Entry {
	if e.check {
		entry.Status = StatusWouldRepair
		entry.Detail = detail
		return entry
	}
	if err := e.removePair(ctx, p); err != nil {
		entry.Status = StatusFailed
		entry.Detail = err.Error()
		return entry
	}
	entry.Status = StatusRepaired
	entry.Detail = detail
	return entry
}

// readPlan loads and decodes the operation's log. A missing log is
// reported as (nil, nil, "") so the caller can treat the journal as
// workless; an undecodable log is reported in malformed.
func (e *Engine) readPlan(ctx context.Context, p pair, rec cooplock.Record) (paths []string, pairs []cooplock.RenamePair, malformed string) {
	data, _, err := e.store.Read(ctx, p.logKey)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil, ""
		}
		return nil, nil, fmt.Sprintf("read log: %v", err)
	}

	switch rec.RecordKind() {
	case cooplock.KindDelete:
		paths = cooplock.DecodeDeleteLog(data)
		if paths == nil {
			paths = []string{}
		}
	case cooplock.KindRename:
		pairs, err = cooplock.DecodeRenameLog(data)
		if err != nil {
			return nil, nil, err.Error()
		}
		if pairs == nil {
			pairs = []cooplock.RenamePair{}
		}
	}
	return paths, pairs, ""
}

func (e *Engine) matchesPrefix(rec cooplock.Record) bool {
	if e.prefixFilter == "" {
		return true
	}

	switch r := rec.(type) {
	case cooplock.DeleteRecord:
		return hasPathPrefix(r.Resource, e.prefixFilter)
	case cooplock.RenameRecord:
		return hasPathPrefix(r.SrcResource, e.prefixFilter) || hasPathPrefix(r.DstResource, e.prefixFilter)
	}
	return false
}

// resourceOf renders the operation's target for the report.
func resourceOf(rec cooplock.Record) string {
	switch r := rec.(type) {
	case cooplock.DeleteRecord:
		return r.Resource
	case cooplock.RenameRecord:
		return r.SrcResource + " -> " + r.DstResource
	}
	return ""
}

// takeOwnership bumps the lock's lease via a version-guarded write.
func (e *Engine) takeOwnership(ctx context.Context, p pair, rec cooplock.Record, version store.Version) error {
	data, err := cooplock.EncodeRecord(rec.WithEpoch(e.now().Unix()))
	if err != nil {
		return err
	}

	_, err = e.store.Update(ctx, p.lockKey, data, version)
	return err
}

// removePair deletes the journal pair, log first like a normal finish.
func (e *Engine) removePair(ctx context.Context, p pair) error {
	if err := e.store.Delete(ctx, p.logKey); err != nil {
		return fmt.Errorf("remove log object: %w", err)
	}
	if err := e.store.Delete(ctx, p.lockKey); err != nil {
		return fmt.Errorf("remove lock object: %w", err)
	}
	return nil
}
