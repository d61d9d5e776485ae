package chain

import (
	"context"
	"time"
)

// pollUntil calls fn until it reports done, returns an error, or ctx ends.
// The delay between calls doubles up to maxDelay.
func pollUntil(ctx context.Context, baseDelay, maxDelay time.Duration, fn func(context.Context) (bool, error)) error {
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}

	delay := baseDelay
	for {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
