package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNetwork marks failures talking to the redis backend.
	ErrNetwork = errors.New("network error")

	// ErrCacheMiss is what Lookup reports for an absent key, so callers can
	// tell a miss from a backend failure with errors.Is.
	ErrCacheMiss = errors.New("cache miss")
)

// Lookup reads key and turns a plain miss into ErrCacheMiss.
func Lookup(ctx context.Context, c Cache, key string) ([]byte, error) {
	data, hit, err := c.Get(ctx, key)
	switch {
	case err != nil:
		return nil, err
	case !hit:
		return nil, ErrCacheMiss
	}
	return data, nil
}

// RetryableError flags a transient failure, such as the first redis ping
// while the server is still starting.
type RetryableError struct{ Err error }

// Retryable wraps err so RetryWithBackoff tries again. nil stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err carries a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// retryDelay is the first wait; it doubles after every attempt.
var retryDelay = time.Second

const retryAttempts = 3

// RetryWithBackoff calls fn until it succeeds, returns a non-retryable
// error, or retryAttempts calls have failed. Cancelling ctx aborts the wait.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	delay := retryDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !IsRetryable(err) || attempt == retryAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
}
