package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrMaxRetries indicates that all retry attempts have been exhausted
var ErrMaxRetries = errors.New("max retries exceeded")

// RetryOptions configures retry behavior
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// RetryableError wraps an error with retry-specific metadata
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// unavailable builds an ErrUnavailable with the given retry classification
func unavailable(retryable bool, format string, args ...any) error {
	return &RetryableError{
		Err:       fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...)),
		Retryable: retryable,
	}
}

// malformed builds a non-retryable ErrMalformedResponse
func malformed(format string, args ...any) error {
	return &RetryableError{
		Err:       fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...)),
		Retryable: false,
	}
}

// statusError classifies an HTTP status: rate limits and server errors are retried
func statusError(status int, detail string) error {
	retryable := status == 429 || status >= 500
	return unavailable(retryable, "API error (%d): %s", status, detail)
}

// WithRetry executes an operation with exponential backoff.
// Errors marked non-retryable stop immediately.
func WithRetry(ctx context.Context, operation func() error, opts RetryOptions) error {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 100 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}

	delay := opts.InitialDelay

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		var retryableErr *RetryableError
		if errors.As(err, &retryableErr) && !retryableErr.Retryable {
			return err
		}

		if attempt == opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, opts.MaxAttempts, err)
		}

		slog.Warn("Refinement failed, retrying",
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay = time.Duration(float64(delay) * opts.Multiplier)
			if delay > opts.MaxDelay {
				delay = opts.MaxDelay
			}
		}
	}

	return ErrMaxRetries
}
