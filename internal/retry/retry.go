// Package retry provides an explicit exponential-backoff policy object.
// Keeping the policy as a plain value makes backoff parameters inspectable
// and testable in isolation, instead of burying them in call sites.
package retry

import (
	"context"
	"math"
	"time"
)

// Policy describes a bounded exponential backoff schedule.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay before the second attempt.
	BaseDelay time.Duration
	// Factor multiplies the delay after each failed attempt.
	Factor float64
	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration
}

// DefaultPolicy matches the design defaults: 3 attempts, 1s base, factor 2,
// 5s ceiling.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, Factor: 2, MaxDelay: 5 * time.Second}
}

// Delay returns the pause before the given 1-based attempt. Attempt 1 has no
// delay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := float64(p.BaseDelay) * math.Pow(p.Factor, float64(attempt-2))
	if ceil := float64(p.MaxDelay); p.MaxDelay > 0 && d > ceil {
		d = ceil
	}
	return time.Duration(d)
}

// Do runs fn up to MaxAttempts times, sleeping the backoff delay between
// attempts. It stops early when fn succeeds, when retryable reports an error
// as permanent, or when ctx is done (cancellation never triggers another
// attempt). The last error observed is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error, retryable func(error) bool) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if delay := p.Delay(attempt); delay > 0 {
			if serr := sleep(ctx, delay); serr != nil {
				return serr
			}
		}

		if err = fn(ctx, attempt); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if retryable != nil && !retryable(err) {
			return err
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
