package cooplock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/coopfs/pkg/store"
	"github.com/marmos91/coopfs/pkg/store/memory"
)

func newTestJournal(t *testing.T, s store.Store) *Journal {
	t.Helper()

	j, err := New(Config{Store: s})
	require.NoError(t, err)
	return j
}

func TestJournal_BeginDelete(t *testing.T) {
	ctx := context.Background()
	mem := memory.New("test")
	j := newTestJournal(t, mem)

	op, err := j.BeginDelete(ctx, "dir/", []string{"dir/", "dir/a", "dir/b"})
	require.NoError(t, err)

	// Both journal objects must exist
	lockData, _, err := mem.Read(ctx, op.LockKey())
	require.NoError(t, err)
	logData, _, err := mem.Read(ctx, op.LogKey())
	require.NoError(t, err)

	rec, err := DecodeRecord(lockData)
	require.NoError(t, err)
	require.IsType(t, DeleteRecord{}, rec)
	assert.Equal(t, "dir/", rec.(DeleteRecord).Resource)
	assert.Greater(t, rec.Epoch(), int64(0))

	assert.Equal(t, []string{"dir/", "dir/a", "dir/b"}, DecodeDeleteLog(logData))

	// The pair must carry the delete kind and a parseable name
	name, ext, err := ParsePairKey(j.LockDir(), op.LockKey())
	require.NoError(t, err)
	assert.Equal(t, LockExt, ext)
	assert.Equal(t, KindDelete, name.Kind)
	assert.Equal(t, op.ID(), name.OperationID)
}

func TestJournal_BeginRename(t *testing.T) {
	ctx := context.Background()
	mem := memory.New("test")
	j := newTestJournal(t, mem)

	pairs := []RenamePair{{Src: "a/", Dst: "b/"}, {Src: "a/x", Dst: "b/x"}}
	op, err := j.BeginRename(ctx, "a/", "b/", pairs)
	require.NoError(t, err)

	lockData, _, err := mem.Read(ctx, op.LockKey())
	require.NoError(t, err)

	rec, err := DecodeRecord(lockData)
	require.NoError(t, err)
	rr := rec.(RenameRecord)
	assert.Equal(t, "a/", rr.SrcResource)
	assert.Equal(t, "b/", rr.DstResource)
	assert.False(t, rr.CopySucceeded, "new rename must start pre-checkpoint")

	logData, _, err := mem.Read(ctx, op.LogKey())
	require.NoError(t, err)
	decoded, err := DecodeRenameLog(logData)
	require.NoError(t, err)
	assert.Equal(t, pairs, decoded)
}

func TestJournal_BeginCleansUpOnLogFailure(t *testing.T) {
	ctx := context.Background()
	mem := memory.New("test")
	j := newTestJournal(t, mem)

	boom := errors.New("injected failure")
	mem.SetHook(func(op memory.Op, key string) error {
		if op == memory.OpCreate && len(key) > len(LogExt) && key[len(key)-len(LogExt):] == LogExt {
			return boom
		}
		return nil
	})

	_, err := j.BeginDelete(ctx, "dir/", []string{"dir/a"})
	require.Error(t, err)

	// The half-created lock must have been removed again
	mem.SetHook(nil)
	infos, err := mem.List(ctx, j.LockDir())
	require.NoError(t, err)
	assert.Empty(t, infos, "no journal objects may survive a failed begin")
}

func TestOperation_Renew(t *testing.T) {
	ctx := context.Background()
	mem := memory.New("test")

	clock := time.Unix(1_000_000, 0)
	j, err := New(Config{
		Store: mem,
		Now:   func() time.Time { clock = clock.Add(30 * time.Second); return clock },
	})
	require.NoError(t, err)

	op, err := j.BeginDelete(ctx, "dir/", []string{"dir/a"})
	require.NoError(t, err)
	firstEpoch := op.Record().Epoch()

	require.NoError(t, op.Renew(ctx))

	lockData, _, err := mem.Read(ctx, op.LockKey())
	require.NoError(t, err)
	rec, err := DecodeRecord(lockData)
	require.NoError(t, err)
	assert.Greater(t, rec.Epoch(), firstEpoch, "renewal must advance the lease time")
}

func stealLock(t *testing.T, mem *memory.Store, lockKey string) {
	t.Helper()

	ctx := context.Background()
	data, v, err := mem.Read(ctx, lockKey)
	require.NoError(t, err)
	rec, err := DecodeRecord(data)
	require.NoError(t, err)

	// A repairer taking ownership bumps the lease time
	stolen, err := EncodeRecord(rec.WithEpoch(rec.Epoch() + 9999))
	require.NoError(t, err)
	_, err = mem.Update(ctx, lockKey, stolen, v)
	require.NoError(t, err)
}

func TestOperation_RenewLostOwnership(t *testing.T) {
	ctx := context.Background()
	mem := memory.New("test")
	j := newTestJournal(t, mem)

	op, err := j.BeginDelete(ctx, "dir/", []string{"dir/a"})
	require.NoError(t, err)

	stealLock(t, mem, op.LockKey())

	err = op.Renew(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLeaseLost)
}

func TestOperation_RenewRecoversOwnLateWrite(t *testing.T) {
	ctx := context.Background()
	mem := memory.New("test")
	j := newTestJournal(t, mem)

	op, err := j.BeginDelete(ctx, "dir/", []string{"dir/a"})
	require.NoError(t, err)

	// Rewrite the lock with identical content under a new version token,
	// as a backend observing our own write late would present it
	data, v, err := mem.Read(ctx, op.LockKey())
	require.NoError(t, err)
	_, err = mem.Update(ctx, op.LockKey(), data, v)
	require.NoError(t, err)

	// The guard fails, but the content is still ours, so renewal recovers
	require.NoError(t, op.Renew(ctx))
}

func TestOperation_RenewLockRemoved(t *testing.T) {
	ctx := context.Background()
	mem := memory.New("test")
	j := newTestJournal(t, mem)

	op, err := j.BeginDelete(ctx, "dir/", []string{"dir/a"})
	require.NoError(t, err)

	require.NoError(t, mem.Delete(ctx, op.LockKey()))

	err = op.Renew(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLeaseLost)
}

func TestOperation_Checkpoint(t *testing.T) {
	ctx := context.Background()
	mem := memory.New("test")
	j := newTestJournal(t, mem)

	op, err := j.BeginRename(ctx, "a/", "b/", []RenamePair{{Src: "a/x", Dst: "b/x"}})
	require.NoError(t, err)

	require.NoError(t, op.Checkpoint(ctx))

	lockData, _, err := mem.Read(ctx, op.LockKey())
	require.NoError(t, err)
	rec, err := DecodeRecord(lockData)
	require.NoError(t, err)
	assert.True(t, rec.(RenameRecord).CopySucceeded)

	// Renewal after the checkpoint must keep the flag set
	require.NoError(t, op.Renew(ctx))
	lockData, _, err = mem.Read(ctx, op.LockKey())
	require.NoError(t, err)
	rec, err = DecodeRecord(lockData)
	require.NoError(t, err)
	assert.True(t, rec.(RenameRecord).CopySucceeded)
}

func TestOperation_CheckpointOnDelete(t *testing.T) {
	ctx := context.Background()
	j := newTestJournal(t, memory.New("test"))

	op, err := j.BeginDelete(ctx, "dir/", []string{"dir/a"})
	require.NoError(t, err)

	assert.Error(t, op.Checkpoint(ctx), "checkpoint is a rename-only transition")
}

func TestOperation_Finish(t *testing.T) {
	ctx := context.Background()
	mem := memory.New("test")
	j := newTestJournal(t, mem)

	op, err := j.BeginDelete(ctx, "dir/", []string{"dir/a"})
	require.NoError(t, err)

	require.NoError(t, op.Finish(ctx))

	infos, err := mem.List(ctx, j.LockDir())
	require.NoError(t, err)
	assert.Empty(t, infos, "finish must remove the whole journal pair")

	// Finishing twice is harmless: deletes are idempotent
	require.NoError(t, op.Finish(ctx))
}

func TestStartRenewer_RenewsInBackground(t *testing.T) {
	ctx := context.Background()
	mem := memory.New("test")

	clock := time.Unix(1_000_000, 0)
	j, err := New(Config{
		Store: mem,
		Now:   func() time.Time { clock = clock.Add(time.Second); return clock },
	})
	require.NoError(t, err)

	op, err := j.BeginDelete(ctx, "dir/", []string{"dir/a"})
	require.NoError(t, err)
	firstEpoch := op.Record().Epoch()

	opCtx, stop := op.StartRenewer(ctx, RenewerConfig{
		Period:     10 * time.Millisecond,
		Retries:    3,
		RetryDelay: time.Millisecond,
	})
	defer stop()

	require.Eventually(t, func() bool {
		return op.Record().Epoch() > firstEpoch
	}, 2*time.Second, 5*time.Millisecond, "background renewal must advance the lease time")
	assert.NoError(t, opCtx.Err(), "lease must still be owned")

	stop()
	<-opCtx.Done()
	assert.NotErrorIs(t, context.Cause(opCtx), ErrLeaseLost)
}

func TestStartRenewer_LeaseLossCancelsContext(t *testing.T) {
	ctx := context.Background()
	mem := memory.New("test")
	j := newTestJournal(t, mem)

	op, err := j.BeginDelete(ctx, "dir/", []string{"dir/a"})
	require.NoError(t, err)

	// Steal the lock before the renewer's first tick
	stealLock(t, mem, op.LockKey())

	opCtx, stop := op.StartRenewer(ctx, RenewerConfig{
		Period:     10 * time.Millisecond,
		Retries:    2,
		RetryDelay: time.Millisecond,
	})
	defer stop()

	select {
	case <-opCtx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("renewer did not detect the stolen lease")
	}

	assert.ErrorIs(t, context.Cause(opCtx), ErrLeaseLost)
}
