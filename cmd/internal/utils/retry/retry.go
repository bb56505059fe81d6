// Package retry runs an operation under an exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrExhausted is returned (wrapping the last failure) once every retry
// allowed by the policy has failed.
var ErrExhausted = errors.New("retries exhausted")

// Policy describes how many times a failed operation is retried and how
// long to wait before each retry.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
}

// Exponential returns a doubling policy, BaseDelay, 2*BaseDelay, 4*BaseDelay...
func Exponential(maxRetries int, base time.Duration) Policy {
	return Policy{MaxRetries: maxRetries, BaseDelay: base, Multiplier: 2}
}

// Delay returns the wait before the given retry, counted from 1:
// BaseDelay * Multiplier^(retry-1).
func (p Policy) Delay(retry int) time.Duration {
	if retry < 1 || p.BaseDelay <= 0 {
		return 0
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	d := float64(p.BaseDelay) * math.Pow(mult, float64(retry-1))
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// RetryFunc is called before waiting for a retry.
type RetryFunc func(retry int, delay time.Duration, err error)

// Do calls fn until it succeeds, the policy runs out of retries or ctx is
// done. fn is attempted at most MaxRetries+1 times.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error, onRetry RetryFunc) error {
	var err error
	for retry := 0; ; retry++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		if err = fn(ctx); err == nil {
			return nil
		}

		if retry >= p.MaxRetries {
			break
		}

		delay := p.Delay(retry + 1)
		if onRetry != nil {
			onRetry(retry+1, delay, err)
		}

		if werr := wait(ctx, delay); werr != nil {
			return werr
		}
	}
	return fmt.Errorf("%w after %d retries: %w", ErrExhausted, p.MaxRetries, err)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
