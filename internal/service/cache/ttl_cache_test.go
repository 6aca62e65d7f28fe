package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCache_ExpiresEntries(t *testing.T) {
	now := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.clock = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), 30*time.Second))
	b, ok, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(b))

	now = now.Add(30 * time.Second)
	_, ok, _ = c.GetBytes(ctx, "k")
	assert.False(t, ok)
}

func TestTTLCache_ZeroTTLNeverExpires(t *testing.T) {
	now := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.clock = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), 0))
	now = now.Add(24 * time.Hour)
	_, ok, _ := c.GetBytes(ctx, "k")
	assert.True(t, ok)
}

func TestTTLCache_Purge(t *testing.T) {
	now := time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)
	c := NewTTLCache()
	c.clock = func() time.Time { return now }
	ctx := context.Background()

	_ = c.SetBytes(ctx, "a", []byte("1"), time.Second)
	_ = c.SetBytes(ctx, "b", []byte("2"), time.Minute)
	now = now.Add(2 * time.Second)

	assert.Equal(t, 1, c.Purge())
	_, ok, _ := c.GetBytes(ctx, "b")
	assert.True(t, ok)
}
