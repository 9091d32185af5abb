package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "geo:1 main st", []byte("47.6,-122.3"), time.Minute))

	v, ok := c.Get(ctx, "geo:1 main st")
	require.True(t, ok)
	assert.Equal(t, "47.6,-122.3", string(v))

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "geo:1 main st")
	assert.False(t, ok)
}

func TestMemoryCacheZeroTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	c.now = func() time.Time { return time.Now().Add(24 * 365 * time.Hour) }
	_, ok := c.Get(ctx, "k")
	assert.True(t, ok)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestRedisCache_UnreachableServerIsAMiss(t *testing.T) {
	rc := NewRedisCache("127.0.0.1:1", "", 0, "test:")
	defer rc.Close()

	ctx := context.Background()
	assert.Error(t, rc.Ping(ctx))

	_, ok := rc.Get(ctx, "missing")
	assert.False(t, ok)
}
