package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultBaseBackoff is the delay before the first retry. Each further retry
// doubles it.
const DefaultBaseBackoff = 500 * time.Millisecond

// RetryPolicy bounds notification retries.
// These retries apply to notifications only, never to the upload itself.
type RetryPolicy struct {
	// Retries is the number of attempts after the first.
	Retries int
	// BaseBackoff is the first retry delay (default DefaultBaseBackoff).
	BaseBackoff time.Duration
}

// Backoff returns the delay before retry number attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	base := p.BaseBackoff
	if base <= 0 {
		base = DefaultBaseBackoff
	}
	return time.Duration(1<<uint(attempt-1)) * base
}

// PermanentError marks a failure that must not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so Retry stops immediately.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// Retry calls fn until it succeeds, returns a permanent error, the attempts
// run out, or ctx is done. The returned error is prefixed with name.
func Retry(ctx context.Context, name string, policy RetryPolicy, fn func(ctx context.Context) error) error {
	var lastErr error
	attempts := 1 + policy.Retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(policy.Backoff(i)):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		var permErr *PermanentError
		if errors.As(lastErr, &permErr) {
			return fmt.Errorf("%s: non-retriable error: %w", name, permErr.Err)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
