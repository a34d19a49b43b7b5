package index

import (
	"context"
	"time"
)

// embedBackoff is the fixed delay schedule for retrying a failed embedding
// batch: 100ms, then 500ms, then 2s, three retries total after the initial
// attempt.
var embedBackoff = []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 2 * time.Second}

// retryEmbed runs fn, retrying on the fixed embedBackoff schedule if it
// returns an error. The last error is returned if every attempt fails.
func retryEmbed(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(); err != nil {
			lastErr = err
			if attempt >= len(embedBackoff) {
				return lastErr
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(embedBackoff[attempt]):
			}
			continue
		}
		return nil
	}
}
