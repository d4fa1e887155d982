// Package retry runs operations with bounded retries and backoff.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/ProstoyVadila/ml-service/internal/domain"
)

// BackoffMode selects how the delay between attempts evolves.
type BackoffMode int

const (
	// Fixed sleeps Delay between every attempt.
	Fixed BackoffMode = iota
	// Increasing doubles Delay per attempt, capped at Delay*Attempts, with ±20% jitter.
	Increasing
)

const (
	jitterMin = 0.8
	jitterMax = 1.2
)

// Policy describes how an operation is retried.
type Policy struct {
	Attempts int
	Delay    time.Duration
	Mode     BackoffMode
	// Retryable reports whether err may be retried. Nil retries every error.
	Retryable func(error) bool
}

// DelayFor returns the sleep before the attempt following failed attempt n (1-based).
func (p Policy) DelayFor(n int) time.Duration {
	if p.Mode != Increasing {
		return p.Delay
	}
	if n < 1 {
		n = 1
	}
	d := p.Delay
	upper := p.Delay * time.Duration(max(p.Attempts, 1))
	for i := 1; i < n && d < upper; i++ {
		d *= 2
	}
	d = min(d, upper)
	jitter := jitterMin + rand.Float64()*(jitterMax-jitterMin)
	return time.Duration(float64(d) * jitter)
}

func (p Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

// Do runs op until it succeeds, fails with a non-retryable error, or the
// policy runs out of attempts. The last error is returned as-is.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if !p.retryable(err) || attempt == p.Attempts {
			return zero, err
		}

		t := time.NewTimer(p.DelayFor(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, errors.Join(lastErr, ctx.Err())
		case <-t.C:
		}
	}
	if lastErr != nil {
		return zero, lastErr
	}
	return zero, domain.ErrRetriesExhausted
}
