package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newLimiter(store Store) (*Limiter, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)}
	return New(store, 6, 10*time.Minute, WithClock(clk.Now)), clk
}

func TestLimiter_SixPerTenMinutes(t *testing.T) {
	l, clk := newLimiter(NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		ok, err := l.Allow(ctx, "u1")
		require.NoError(t, err)
		require.True(t, ok, "hit %d", i+1)
		clk.Advance(time.Second)
	}
	ok, err := l.Allow(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "u2")
	assert.True(t, ok, "keys are independent")
}

func TestLimiter_WindowSlides(t *testing.T) {
	l, clk := newLimiter(NewMemoryStore())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		ok, _ := l.Allow(ctx, "u")
		require.True(t, ok)
	}
	clk.Advance(10*time.Minute - time.Millisecond)
	ok, _ := l.Allow(ctx, "u")
	assert.False(t, ok, "hits are still inside the window")

	clk.Advance(time.Millisecond)
	ok, _ = l.Allow(ctx, "u")
	assert.True(t, ok, "hits exactly one window old have expired")
}

func TestLimiter_RejectedHitsDoNotCount(t *testing.T) {
	l, clk := newLimiter(NewMemoryStore())
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		_, _ = l.Allow(ctx, "u")
	}
	for i := 0; i < 20; i++ {
		clk.Advance(time.Second)
		ok, _ := l.Allow(ctx, "u")
		require.False(t, ok)
	}
	clk.Advance(10*time.Minute - 20*time.Second)
	ok, _ := l.Allow(ctx, "u")
	assert.True(t, ok)
}

func TestLimiter_EvictDropsIdleKeys(t *testing.T) {
	store := NewMemoryStore()
	l, clk := newLimiter(store)
	ctx := context.Background()
	_, _ = l.Allow(ctx, "a")
	clk.Advance(5 * time.Minute)
	_, _ = l.Allow(ctx, "b")
	require.Equal(t, 2, store.Len())

	clk.Advance(6 * time.Minute)
	n, err := l.Evict(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, store.Len())
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, time.Time) (int, error) {
	return 0, errors.New("unavailable")
}
func (failingStore) Increment(context.Context, string, time.Time, time.Duration) error { return nil }
func (failingStore) EvictExpired(context.Context, time.Time) (int, error)            { return 0, nil }

func TestLimiter_FailsOpen(t *testing.T) {
	l, _ := newLimiter(failingStore{})
	ok, err := l.Allow(context.Background(), "u")
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestRunEviction_StopsOnCancel(t *testing.T) {
	l, _ := newLimiter(NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.RunEviction(ctx, time.Millisecond, nil)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunEviction did not return")
	}
}
