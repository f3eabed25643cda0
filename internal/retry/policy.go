// Package retry centralises the backoff policy used by every remote mutation.
package retry

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	apperrors "github.com/pwendlys/viaja-mais/internal/errors"
)

// Class tells the policy whether repeating a call is safe.
type Class int

const (
	// Idempotent calls (updates to a fixed value, deletes, upserts) may be repeated.
	Idempotent Class = iota
	// NonIdempotent calls (plain inserts, counters) are attempted once.
	NonIdempotent
)

func (c Class) String() string {
	if c == NonIdempotent {
		return "non-idempotent"
	}
	return "idempotent"
}

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Retryable decides whether an error is worth another attempt.
	Retryable func(error) bool
}

func NewPolicy(maxAttempts int, baseDelay, maxDelay time.Duration) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		Retryable:   apperrors.IsTransient,
	}
}

// Delay is the wait before the given retry attempt: base * 2^(attempt-1), capped.
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p *Policy) backOff(ctx context.Context, class Class) backoff.BackOff {
	if class == NonIdempotent || p.MaxAttempts <= 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
}

// Do runs fn under the policy for the given call class.
func (p *Policy) Do(ctx context.Context, class Class, name string, fn func(ctx context.Context) error) error {
	attempt := 0
	op := func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("retry: %s (%s) attempt %d failed: %v, retrying in %s", name, class, attempt, err, wait)
	}
	return backoff.RetryNotify(op, p.backOff(ctx, class), notify)
}
