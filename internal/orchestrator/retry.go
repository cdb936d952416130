package orchestrator

import (
	"context"
	"time"

	"github.com/docsmith/docsmith/internal/worker"
)

// RetryPolicy bounds per-stage retries. Only transient worker errors are
// retried; schema mismatches and other deterministic failures surface
// immediately because replaying them cannot change the outcome.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// Backoff is the delay before the first retry. Each subsequent retry
	// doubles it.
	Backoff time.Duration
	// sleep is overridable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy matches the pipeline configuration defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Backoff: 500 * time.Millisecond}
}

// Retryable reports whether the error may succeed on a replay.
func Retryable(err error) bool {
	we, ok := worker.AsWorkerError(err)
	return ok && we.Transient()
}

// Delay returns the backoff before the given retry (1-based).
func (p RetryPolicy) Delay(retry int) time.Duration {
	d := p.Backoff
	for i := 1; i < retry; i++ {
		d *= 2
	}
	return d
}

// Wait sleeps for the backoff of the given retry, honoring cancellation.
func (p RetryPolicy) Wait(ctx context.Context, retry int) error {
	if p.sleep != nil {
		return p.sleep(ctx, p.Delay(retry))
	}
	timer := time.NewTimer(p.Delay(retry))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
