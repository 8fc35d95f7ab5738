package util

import (
	"context"
	"errors"
	"testing"
)

func TestRetry(t *testing.T) {
	t.Run("succeeds first try", func(t *testing.T) {
		calls := 0
		got, err := Retry(3, func() (int, error) {
			calls++
			return 42, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 42 || calls != 1 {
			t.Errorf("got %d after %d calls, want 42 after 1", got, calls)
		}
	})

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		got, err := Retry(3, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("transient")
			}
			return 7, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 7 || calls != 3 {
			t.Errorf("got %d after %d calls, want 7 after 3", got, calls)
		}
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		calls := 0
		_, err := Retry(3, func() (int, error) {
			calls++
			return 0, errors.New("permanent")
		})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 3 {
			t.Errorf("fn called %d times, want 3", calls)
		}
	})
}

func TestRetryWithContext(t *testing.T) {
	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		calls := 0
		_, err := RetryWithContext(ctx, 3, func() (int, error) {
			calls++
			return 0, errors.New("should not run")
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
		if calls != 0 {
			t.Errorf("fn called %d times, want 0", calls)
		}
	})

	t.Run("stops when error wraps cancellation", func(t *testing.T) {
		calls := 0
		_, err := RetryWithContext(context.Background(), 5, func() (int, error) {
			calls++
			return 0, context.DeadlineExceeded
		})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("want context.DeadlineExceeded, got %v", err)
		}
		if calls != 1 {
			t.Errorf("fn called %d times, want 1", calls)
		}
	})
}
