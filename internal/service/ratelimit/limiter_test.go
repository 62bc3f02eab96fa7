package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowConsumesBurstThenRefills(t *testing.T) {
	clock := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	l := New()
	l.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("1.2.3.4", 3, 1), "burst token %d", i)
	}
	assert.False(t, l.Allow("1.2.3.4", 3, 1))
	assert.True(t, l.Allow("5.6.7.8", 3, 1), "keys have separate buckets")

	clock = clock.Add(1500 * time.Millisecond)
	assert.True(t, l.Allow("1.2.3.4", 3, 1))
	assert.False(t, l.Allow("1.2.3.4", 3, 1))
}

func TestWaitBlocksForNextToken(t *testing.T) {
	l := New()
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "api", 1, 50))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "api", 1, 50))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestWaitHonoursCancellation(t *testing.T) {
	l := New()
	require.True(t, l.Allow("api", 1, 0.001))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "api", 1, 0.001)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
