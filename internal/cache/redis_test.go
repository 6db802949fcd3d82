package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/fanscore/internal/config"
)

func setupRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCache(client, "fanscore:")
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache_GetSet(t *testing.T) {
	c, mr := setupRedisCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "leaderboard:a1", []byte(`[1,2,3]`), 5*time.Minute))
	assert.True(t, mr.Exists("fanscore:leaderboard:a1"), "keys are namespaced")

	val, err := c.Get(ctx, "leaderboard:a1")
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(val))

	mr.FastForward(5*time.Minute + time.Second)
	_, err = c.Get(ctx, "leaderboard:a1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisCache_DeletePrefix(t *testing.T) {
	c, mr := setupRedisCache(t)
	ctx := context.Background()

	for _, k := range []string{"leaderboard:a1:all_time", "leaderboard:a1:weekly", "leaderboard:a2:all_time"} {
		require.NoError(t, c.Set(ctx, k, []byte("x"), time.Minute))
	}
	require.NoError(t, mr.Set("unrelated", "keep"))

	n, err := c.DeletePrefix(ctx, "leaderboard:a1:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = c.Get(ctx, "leaderboard:a2:all_time")
	assert.NoError(t, err)

	n, err = c.DeletePrefix(ctx, "leaderboard:")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, mr.Exists("unrelated"))
}

func TestRedisCache_Del(t *testing.T) {
	c, _ := setupRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Del(ctx, "k"))
	require.NoError(t, c.Del(ctx))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.NoError(t, c.Health(ctx))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewRedisClient(context.Background(), &config.RedisConfig{Host: mr.Host(), Port: port})
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = NewRedisClient(context.Background(), &config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
}
