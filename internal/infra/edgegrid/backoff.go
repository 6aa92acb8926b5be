package edgegrid

import (
	"context"
	"time"
)

// retryDelay computes the pause before retry number attempt (1-based):
// the policy base doubled per attempt, clamped to the policy cap. A
// server-provided floor overrides a shorter computed delay.
func retryDelay(policy RetryPolicy, attempt int, floor time.Duration) time.Duration {
	base := policy.Base
	if base <= 0 {
		base = time.Second
	}
	limit := policy.Cap
	if limit < base {
		limit = base
	}

	delay := base << (attempt - 1)
	if delay <= 0 || delay > limit {
		delay = limit
	}
	if floor > delay {
		delay = floor
	}
	return delay
}

// sleep waits d or until ctx is canceled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
