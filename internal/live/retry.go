package live

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
)

// RetryPolicy retries an operation with bounded exponential backoff. It is
// used for transient data-fetch and order-submit failures; exhausting the
// attempts surfaces the last error to the caller, which counts it and moves
// on to the next tick.
type RetryPolicy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// DefaultRetry bounds the policy at maxAttempts with 500ms..10s delays.
func DefaultRetry(maxAttempts int) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		MinDelay:    500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Do runs op until it succeeds, the attempts are exhausted, or ctx is
// cancelled during a backoff wait.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	b := &backoff.Backoff{
		Min:    p.MinDelay,
		Max:    p.MaxDelay,
		Factor: 2,
		Jitter: true,
	}

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("after %d attempts: %w", p.MaxAttempts, err)
}
