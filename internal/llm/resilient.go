package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Resilient decorates a refiner with rate limiting, per-attempt timeouts
// and bounded retries.
type Resilient struct {
	inner   Refiner
	retry   RetryOptions
	limiter *Limiter
	timeout time.Duration
}

// NewResilient wraps inner. A nil limiter disables rate limiting and a zero
// timeout leaves attempts bounded only by ctx.
func NewResilient(inner Refiner, retry RetryOptions, limiter *Limiter, timeout time.Duration) *Resilient {
	return &Resilient{inner: inner, retry: retry, limiter: limiter, timeout: timeout}
}

// Name returns the wrapped provider name
func (r *Resilient) Name() string {
	return r.inner.Name()
}

// Refine calls the wrapped refiner until it succeeds, fails permanently or
// runs out of attempts.
func (r *Resilient) Refine(ctx context.Context, req RefineRequest) (*RefineResponse, error) {
	var resp *RefineResponse
	err := WithRetry(ctx, func() error {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx, r.inner.Name()); err != nil {
				return &RetryableError{Err: fmt.Errorf("rate limiter: %w", err), Retryable: false}
			}
		}

		attemptCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		out, err := r.inner.Refine(attemptCtx, req)
		if err != nil {
			if ctx.Err() != nil {
				return &RetryableError{Err: err, Retryable: false}
			}
			if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
				return unavailable(true, "attempt timed out after %s", r.timeout)
			}
			return err
		}
		if out == nil || out.Text == "" {
			return malformed("empty response")
		}
		resp = out
		return nil
	}, r.retry)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
