package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryWithBackoff_SucceedsAfterFailure(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), 2, func(attempt int) error {
		calls++
		if attempt == 0 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryWithBackoff() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	sentinel := errors.New("always fails")
	err := RetryWithBackoff(context.Background(), 1, func(int) error {
		return sentinel
	})
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("Expected wrapped sentinel error, got %v", err)
	}
}

func TestRetryIf_PermanentErrorNotRetried(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := RetryIf(context.Background(), 3, func(error) bool { return false }, func(int) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("Expected permanent error returned directly, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call for permanent error, got %d", calls)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := RetryWithBackoff(ctx, 3, func(int) error {
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Cancelled retry should return without sleeping out the backoff")
	}
}
