package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// RemoteError is a failed call to a remote translation service.
type RemoteError struct {
	Status    int
	Message   string
	Cause     error
	Retryable bool
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("remote error: %s: %v", msg, e.Cause)
	}
	return "remote error: " + msg
}

func (e *RemoteError) Unwrap() error {
	return e.Cause
}

// RetryConfig controls exponential backoff.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig retries three times starting at one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// WithRetry runs fn until it succeeds, returns a non-retryable error, or the
// retries are exhausted.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}

		if attempt < cfg.MaxRetries {
			delay := cfg.BaseDelay * time.Duration(1<<attempt)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
			log.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", delay).Msg("Retrying remote call")
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return zero, fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}

// IsRetryable reports whether err is a RemoteError marked retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.Retryable
	}
	return false
}

func retryableStatus(status int) bool {
	return status == 429 || status >= 500
}
