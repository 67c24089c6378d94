// Package poll provides a fixed-interval poll with a hard deadline.
package poll

import (
	"context"
	"time"
)

// Until calls fn every interval until fn resolves, fn returns an error, the
// timeout elapses, or the context is cancelled. It returns true when fn
// resolved and false on timeout; a timeout is not an error.
func Until(ctx context.Context, interval, timeout time.Duration, fn func(context.Context) (bool, error)) (bool, error) {
	if interval <= 0 {
		interval = time.Second
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := fn(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			return false, nil
		case <-ticker.C:
		}
	}
}
