package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"dify-manga/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_SetGetDelete(t *testing.T) {
	c := NewLRUCache(8, 0)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	val, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	assert.NoError(t, c.Delete(ctx, "never-set"))
	assert.NoError(t, c.Ping(ctx))
}

func TestLRUCache_PerKeyExpiration(t *testing.T) {
	c := NewLRUCache(8, 0)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "short", "a", time.Minute))
	require.NoError(t, c.Set(ctx, "forever", "b", 0))

	now = base.Add(59 * time.Second)
	val, err := c.Get(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, "a", val)

	now = base.Add(time.Minute)
	_, err = c.Get(ctx, "short")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	val, err = c.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "b", val)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache(2, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), "v", 0))
	}

	_, err := c.Get(ctx, "k0")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	_, err = c.Get(ctx, "k2")
	assert.NoError(t, err)
}
