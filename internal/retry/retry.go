// Package retry provides the shared backoff policy applied to calls
// against the external inference and search services. The Embedder,
// Retriever and generation chain all use the same policy instead of
// duplicating ad-hoc retry loops.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/logger"
)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 16 * time.Second
)

// Policy describes exponential backoff with jitter.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry; it doubles each
	// subsequent retry up to MaxDelay.
	BaseDelay time.Duration

	// MaxDelay caps the backoff.
	MaxDelay time.Duration

	// Jitter adds up to 25% random variation when true.
	Jitter bool

	// sleep is a seam for tests. Nil means time.Sleep with
	// context cancellation.
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the policy used when configuration does not
// override it.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Jitter:      true,
	}
}

// WithSleep returns a copy of the policy using the given sleep
// function. Tests use this to avoid real delays.
func (p Policy) WithSleep(sleep func(ctx context.Context, d time.Duration) error) Policy {
	p.sleep = sleep
	return p
}

// Do runs fn, retrying on rate-limit and transient errors up to the
// attempt ceiling. Non-retryable errors and context cancellation stop
// immediately. The last error is returned after exhaustion.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	delay := base

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !domain.Retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		wait := delay
		if p.Jitter {
			wait += time.Duration(rand.Int63n(int64(delay)/4 + 1))
		}
		logger.Warn("%s failed (attempt %d/%d), retrying in %s: %v", op, attempt, attempts, wait, err)

		if err := sleep(ctx, wait); err != nil {
			return lastErr
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}

	return lastErr
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Exhausted reports whether err is a retryable error that survived
// the policy, i.e. the ceiling was reached without success.
func Exhausted(err error) bool {
	return err != nil && domain.Retryable(err) && !errors.Is(err, context.Canceled)
}
