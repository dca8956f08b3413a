package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenBucketBurstThenLimit(t *testing.T) {
	tb := newTokenBucket(2, 10.0/60.0) // burst 2, 10 tokens per minute

	allowed, remaining, _, _ := tb.Allow()
	require.True(t, allowed)
	require.Equal(t, 1, remaining)

	allowed, remaining, _, _ = tb.Allow()
	require.True(t, allowed)
	require.Equal(t, 0, remaining)

	allowed, remaining, nextToken, _ := tb.Allow()
	require.False(t, allowed)
	require.Equal(t, 0, remaining)
	require.True(t, nextToken.After(time.Now()))
}

func TestLimiterIsPerPrincipal(t *testing.T) {
	l := NewLimiter(Config{WindowSeconds: 60, MaxRequests: 10, Burst: 1})
	defer l.Close()

	allowedA, _, _, _ := l.Allow("user-a")
	require.True(t, allowedA)
	allowedA2, _, _, _ := l.Allow("user-a")
	require.False(t, allowedA2, "user-a should be rate limited after burst")

	allowedB, _, _, _ := l.Allow("user-b")
	require.True(t, allowedB, "user-b has its own independent bucket")
}

func TestLimiterRefillsOverTime(t *testing.T) {
	l := NewLimiter(Config{WindowSeconds: 1, MaxRequests: 1000, Burst: 1})
	defer l.Close()

	allowed, _, _, _ := l.Allow("user")
	require.True(t, allowed)
	allowed, _, _, _ = l.Allow("user")
	require.False(t, allowed)

	time.Sleep(20 * time.Millisecond)
	allowed, _, _, _ = l.Allow("user")
	require.True(t, allowed, "bucket should have refilled at 1000 req/s")
}
