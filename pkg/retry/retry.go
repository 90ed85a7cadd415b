// Package retry provides a small bounded-attempt retry helper.
// No external dependencies - uses only standard library.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrNoAttempts is returned when Do is called with attempts < 1.
var ErrNoAttempts = errors.New("retry: attempts must be at least 1")

// Do runs fn up to attempts times, waiting delay between failures. It stops
// on the first nil error, on context cancellation, or when attempts are
// exhausted, returning the last error seen.
func Do(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		return ErrNoAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < attempts && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return lastErr
}
