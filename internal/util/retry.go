package util

import (
	"context"
	"errors"
)

// Retry runs fn up to attempts times, returning the first successful
// result or the last error.
func Retry[T any](attempts int, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for i := 0; i < attempts; i++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}
	}
	return result, err
}

// RetryErr runs fn up to attempts times for functions that only return an
// error.
func RetryErr(attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
	}
	return err
}

// RetryWithContext runs fn up to attempts times and stops early when the
// context is cancelled or the error wraps a context cancellation.
func RetryWithContext[T any](ctx context.Context, attempts int, fn func() (T, error)) (T, error) {
	var (
		result T
		err    error
	)
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result, err = fn()
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result, err
		}
	}
	return result, err
}

// RetryErrWithContext is RetryWithContext for functions that only return an
// error.
func RetryErrWithContext(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err = fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}
	return err
}
