package util

import (
	"context"
	"fmt"
	"time"
)

// RetryWithBackoff calls fn up to maxRetries+1 times with exponential backoff.
// fn receives the current attempt number (0-indexed). It should return nil on
// success. If the context is cancelled, the context error is returned
// immediately.
func RetryWithBackoff(ctx context.Context, maxRetries int, fn func(attempt int) error) error {
	return RetryIf(ctx, maxRetries, func(error) bool { return true }, fn)
}

// RetryIf is RetryWithBackoff with a retryable predicate: a failure for which
// shouldRetry returns false is returned immediately without further attempts.
// Used to retry transient marketplace errors while failing fast on permanent
// ones.
func RetryIf(ctx context.Context, maxRetries int, shouldRetry func(error) bool, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if !shouldRetry(lastErr) {
			return lastErr
		}
		if attempt == maxRetries {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		backoff := time.Duration(1<<attempt) * time.Second
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
