package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestInMemorySlidingWindow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	store := NewInMemory(WithClock(clock.now))
	ctx := context.Background()

	for i := range 3 {
		res, err := store.Allow(ctx, "actor:li", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		clock.advance(10 * time.Second)
	}

	res, err := store.Allow(ctx, "actor:li", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	// First request was at 09:00:00, so a slot opens at 09:01:00.
	assert.Equal(t, clock.t.Add(30*time.Second), res.ResetAt)
	assert.Equal(t, 30, res.RetryAfter(clock.t))

	t.Run("other keys are independent", func(t *testing.T) {
		res, err := store.Allow(ctx, "actor:priya", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("window slides", func(t *testing.T) {
		clock.advance(30 * time.Second)
		res, err := store.Allow(ctx, "actor:li", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 0, res.Remaining)
	})
}

func TestRetryAfterIsAtLeastOneSecond(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 1, Result{ResetAt: now}.RetryAfter(now))
	assert.Equal(t, 1, Result{ResetAt: now.Add(-time.Second)}.RetryAfter(now))
	assert.Equal(t, 5, Result{ResetAt: now.Add(5 * time.Second)}.RetryAfter(now))
}
