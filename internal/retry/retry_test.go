package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// noSleep replaces real backoff delays in tests.
func noSleep(_ context.Context, _ time.Duration) error { return nil }

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	p := DefaultPolicy().WithSleep(noSleep)

	calls := 0
	err := p.Do(context.Background(), "test", func(_ context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRateLimitThenSucceeds(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}.WithSleep(noSleep)

	calls := 0
	err := p.Do(context.Background(), "embed", func(_ context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("embed batch: %w", domain.ErrRateLimited)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls, "should succeed on the third attempt")
}

func TestDo_ExhaustsCeiling(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}.WithSleep(noSleep)

	calls := 0
	err := p.Do(context.Background(), "search", func(_ context.Context) error {
		calls++
		return domain.ErrTransient
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransient)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}.WithSleep(noSleep)

	fatal := errors.New("bad request")
	calls := 0
	err := p.Do(context.Background(), "test", func(_ context.Context) error {
		calls++
		return fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledStopsRetries(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}.WithSleep(noSleep)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, "test", func(_ context.Context) error {
		calls++
		cancel()
		return domain.ErrRateLimited
	})

	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Equal(t, 1, calls)
}

func TestDo_ZeroValuesUseDefaults(t *testing.T) {
	var p Policy
	p = p.WithSleep(noSleep)

	calls := 0
	err := p.Do(context.Background(), "test", func(_ context.Context) error {
		calls++
		return domain.ErrRateLimited
	})

	require.Error(t, err)
	assert.Equal(t, DefaultMaxAttempts, calls)
}

func TestExhausted(t *testing.T) {
	assert.True(t, Exhausted(domain.ErrRateLimited))
	assert.True(t, Exhausted(fmt.Errorf("wrapped: %w", domain.ErrTransient)))
	assert.False(t, Exhausted(nil))
	assert.False(t, Exhausted(errors.New("other")))
}
