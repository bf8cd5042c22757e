package lss

import (
	"context"
	log "log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry executes task with Fibonacci backoff up to 5 retries, invoking
// gaveUpTask (when non-nil) if retries are exhausted. Used by handle
// construction (file open); the lock table's internal_lock loop uses
// RetryNow instead, and positioned I/O itself is never retried on the
// caller's behalf (§7).
func Retry(ctx context.Context, task func(ctx context.Context) error, gaveUpTask func(ctx context.Context)) error {
	b := retry.NewFibonacci(1 * time.Millisecond)
	if err := retry.Do(ctx, retry.WithMaxRetries(5, b), task); err != nil {
		log.Warn(err.Error() + ", gave up")
		if gaveUpTask != nil {
			gaveUpTask(ctx)
		}
		return err
	}
	return nil
}

// RetryNow loops task until it reports no retry is needed, with no backoff
// and no retry limit. This models the lock table's internal_lock contract
// (§4.4): the store-level RETRY_NOW signal is never surfaced, it is looped
// on until SUCCESS.
func RetryNow(ctx context.Context, task func(ctx context.Context) (retryNow bool, err error)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		retryNow, err := task(ctx)
		if err != nil {
			return err
		}
		if !retryNow {
			return nil
		}
	}
}
