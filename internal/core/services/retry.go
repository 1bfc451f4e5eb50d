package services

import (
	"context"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
)

const (
	defaultRetryAttempts = 3
	defaultRetryBaseWait = 200 * time.Millisecond
)

// withRetry runs fn up to attempts times, backing off exponentially
// between tries. Only transient upstream errors are retried; anything
// else returns immediately. Context cancellation aborts the wait.
func withRetry(ctx context.Context, attempts int, baseWait time.Duration, fn func() error) error {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	if baseWait <= 0 {
		baseWait = defaultRetryBaseWait
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := baseWait << (attempt - 1)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !domain.IsRetryable(err) {
			return err
		}
	}
	return err
}
