package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenCache(t *testing.T) {
	ctx := context.Background()

	t.Run("set then get", func(t *testing.T) {
		c := NewInMemoryTokenCache()
		require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

		value, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v", value)
	})

	t.Run("missing key", func(t *testing.T) {
		c := NewInMemoryTokenCache()
		_, ok, err := c.Get(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("expired entry is gone", func(t *testing.T) {
		now := time.Now()
		c := NewInMemoryTokenCache().WithClock(func() time.Time { return now })
		require.NoError(t, c.Set(ctx, "k", "v", time.Hour))

		now = now.Add(time.Hour + time.Second)
		_, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("non-positive ttl removes", func(t *testing.T) {
		c := NewInMemoryTokenCache()
		require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
		require.NoError(t, c.Set(ctx, "k", "v", 0))

		_, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("delete", func(t *testing.T) {
		c := NewInMemoryTokenCache()
		require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
		require.NoError(t, c.Delete(ctx, "k"))

		_, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("overwrite refreshes ttl", func(t *testing.T) {
		now := time.Now()
		c := NewInMemoryTokenCache().WithClock(func() time.Time { return now })
		require.NoError(t, c.Set(ctx, "k", "old", time.Minute))

		now = now.Add(30 * time.Second)
		require.NoError(t, c.Set(ctx, "k", "new", time.Minute))

		now = now.Add(45 * time.Second)
		value, ok, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "new", value)
	})
}
