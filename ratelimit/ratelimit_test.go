package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBucketAllowsUpToCapacity(t *testing.T) {
	b := NewBucket(3, 1)
	now := time.Now()

	require.True(t, b.AllowN(now, 1))
	require.True(t, b.AllowN(now, 1))
	require.True(t, b.AllowN(now, 1))
	require.False(t, b.AllowN(now, 1))
}

func TestBucketRefillsOverTime(t *testing.T) {
	b := NewBucket(2, 1)
	now := time.Now()

	require.True(t, b.AllowN(now, 1))
	require.True(t, b.AllowN(now, 1))
	require.False(t, b.AllowN(now, 1))

	later := now.Add(time.Second)
	require.True(t, b.AllowN(later, 1))
}

func TestBucketNeverExceedsCapacity(t *testing.T) {
	b := NewBucket(2, 1)
	now := time.Now()

	much := now.Add(time.Hour)
	require.True(t, b.AllowN(much, 1))
	require.True(t, b.AllowN(much, 1))
	require.False(t, b.AllowN(much, 1))
}

func TestLimiterKeysIndependently(t *testing.T) {
	l := NewLimiter(1, 1)

	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))
	require.True(t, l.Allow("b"))
}
