package cooplock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/coopfs/internal/logger"
)

// Lease renewal defaults.
const (
	DefaultRenewalPeriod     = 1 * time.Minute
	DefaultRenewalRetries    = 10
	DefaultRenewalRetryDelay = 100 * time.Millisecond
)

// RenewerConfig contains configuration for background lease renewal.
type RenewerConfig struct {
	// Period is the interval between renewals (default 1m)
	Period time.Duration

	// Retries is how many renewal attempts one tick may make before the
	// lease is declared lost (default 10)
	Retries int

	// RetryDelay is the pause between attempts within a tick (default 100ms)
	RetryDelay time.Duration
}

func (c RenewerConfig) withDefaults() RenewerConfig {
	if c.Period <= 0 {
		c.Period = DefaultRenewalPeriod
	}
	if c.Retries <= 0 {
		c.Retries = DefaultRenewalRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRenewalRetryDelay
	}
	return c
}

// StartRenewer spawns background lease renewal for op.
//
// The returned context is derived from parent and governs the operation's
// mutations: when a renewal tick exhausts its retries, or the lock turns
// out to be owned by someone else, the context is cancelled with a cause
// wrapping ErrLeaseLost. The caller must run all of the operation's store
// mutations on this context so a lost lease halts the work, and must call
// stop once the operation is done to end the renewal loop.
//
// Returns:
//   - context.Context: Mutation context, cancelled on lease loss
//   - func(): Stops the renewal loop
func (op *Operation) StartRenewer(parent context.Context, cfg RenewerConfig) (context.Context, func()) {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancelCause(parent)

	go func() {
		ticker := time.NewTicker(cfg.Period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := op.renewWithRetry(ctx, cfg); err != nil {
					logger.Error("operation lease lost",
						logger.OperationID(op.ID()),
						logger.Err(err))
					cancel(fmt.Errorf("renew %s: %w", op.LockKey(), err))
					return
				}
			}
		}
	}()

	return ctx, func() { cancel(nil) }
}

// renewWithRetry makes one tick's worth of renewal attempts. A definitive
// ownership loss aborts immediately; transient failures are retried up to
// the configured budget.
func (op *Operation) renewWithRetry(ctx context.Context, cfg RenewerConfig) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.Retries; attempt++ {
		err := op.Renew(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrLeaseLost) || ctx.Err() != nil {
			return err
		}

		lastErr = err
		logger.Warn("lease renewal attempt failed",
			logger.OperationID(op.ID()),
			logger.Attempt(attempt),
			logger.Err(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.RetryDelay):
		}
	}

	return fmt.Errorf("%w: renewal retries exhausted: %v", ErrLeaseLost, lastErr)
}
