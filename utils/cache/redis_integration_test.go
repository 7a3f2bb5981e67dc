//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func startRedis(t *testing.T) *RedisCache {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	c, err := NewRedisCache(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLockExclusive(t *testing.T) {
	c := startRedis(t)
	ctx := context.Background()
	key := "catalog:lock:faculty:f1"

	token, ok, err := c.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = c.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second acquire must fail while held")

	// A stale token must not release the current holder
	require.NoError(t, c.Release(ctx, key, "stale"))
	held, err := c.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, c.Release(ctx, key, token))
	_, ok, err = c.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockExpires(t *testing.T) {
	c := startRedis(t)
	ctx := context.Background()
	key := "catalog:lock:course:c1"

	_, ok, err := c.Acquire(ctx, key, 200*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		_, ok, err := c.Acquire(ctx, key, time.Minute)
		return err == nil && ok
	}, 3*time.Second, 50*time.Millisecond)
}

func TestCounters(t *testing.T) {
	c := startRedis(t)
	ctx := context.Background()

	n, err := c.Increment(ctx, "attempts")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	require.NoError(t, c.Expire(ctx, "attempts", time.Minute))

	ttl, err := c.TTL(ctx, "attempts")
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Set(ctx, "brute_force:lock:1.2.3.4", "locked", time.Minute))
	require.NoError(t, c.Delete(ctx, "attempts", "brute_force:lock:1.2.3.4"))
	held, err := c.Exists(ctx, "attempts")
	require.NoError(t, err)
	assert.False(t, held)
}
