package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaBoundary(t *testing.T) {
	l := New(time.Minute, 100, 0)
	defer l.Close()

	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("trader-1"), "call %d should pass", i+1)
	}
	assert.False(t, l.Allow("trader-1"), "101st call must be rejected")
	assert.Equal(t, 0, l.Remaining("trader-1"))
}

func TestIdentifiersIndependent(t *testing.T) {
	l := New(time.Minute, 2, 0)
	defer l.Close()

	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestWindowExpiryResetsCounter(t *testing.T) {
	l := New(20*time.Millisecond, 2, 0)
	defer l.Close()

	require.True(t, l.Allow("a"))
	require.True(t, l.Allow("a"))
	require.False(t, l.Allow("a"))

	time.Sleep(25 * time.Millisecond)
	assert.True(t, l.Allow("a"), "first call after expiry resets to 1")
	assert.Equal(t, 1, l.Remaining("a"))
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	l := New(10*time.Millisecond, 5, 10*time.Millisecond)
	defer l.Close()

	require.True(t, l.Allow("a"))
	time.Sleep(40 * time.Millisecond)

	l.mu.Lock()
	_, ok := l.m["a"]
	l.mu.Unlock()
	assert.False(t, ok, "expired window should have been swept")
}
