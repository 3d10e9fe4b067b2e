package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	rdb := redisClient(srv.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	c := NewRedisCache(rdb)

	_, ok := c.Get(ctx, "homework:list")
	assert.False(t, ok)

	c.Set(ctx, "homework:list", []byte(`[{"id":3}]`), time.Minute)
	got, ok := c.Get(ctx, "homework:list")
	require.True(t, ok)
	assert.Equal(t, `[{"id":3}]`, string(got))
	assert.True(t, srv.Exists("homework:homework:list"), "keys are namespaced")
	assert.Equal(t, time.Minute, srv.TTL("homework:homework:list"))

	c.Set(ctx, "notice", []byte("v2"), 0)
	assert.Zero(t, srv.TTL("homework:notice"), "no ttl means no expiry")

	srv.FastForward(time.Minute)
	_, ok = c.Get(ctx, "homework:list")
	assert.False(t, ok, "expired at ttl")

	c.Delete(ctx, "notice")
	_, ok = c.Get(ctx, "notice")
	assert.False(t, ok)
}
