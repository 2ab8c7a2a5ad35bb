package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func TestRedisShouldSend(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	store := NewRedis(client)
	ctx := context.Background()

	t.Run("first send passes", func(t *testing.T) {
		ok, err := store.ShouldSend(ctx, "fp-1", 30*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("repeat suppressed", func(t *testing.T) {
		ok, err := store.ShouldSend(ctx, "fp-1", 30*time.Second)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("window sets the key TTL", func(t *testing.T) {
		assert.InDelta(t, 30*time.Second, mr.TTL(redisKeyPrefix+"fp-1"), float64(time.Second))
	})

	t.Run("passes again after expiry", func(t *testing.T) {
		mr.FastForward(31 * time.Second)
		ok, err := store.ShouldSend(ctx, "fp-1", 30*time.Second)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("window zero disables suppression", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			ok, err := store.ShouldSend(ctx, "fp-2", 0)
			require.NoError(t, err)
			assert.True(t, ok)
		}
	})
}

func TestRedisFailsOpen(t *testing.T) {
	mr, client := setupTestRedis(t)
	defer client.Close()
	mr.Close()

	store := NewRedis(client)
	ok, err := store.ShouldSend(context.Background(), "fp-1", 30*time.Second)
	assert.Error(t, err)
	assert.True(t, ok)
}
