package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedis(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisGetSet(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	val, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(val))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisDeletePrefix(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 250; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("projects:public:%d", i), []byte("x"), time.Minute))
	}
	require.NoError(t, c.Set(ctx, "other:key", []byte("y"), time.Minute))

	require.NoError(t, c.DeletePrefix(ctx, "projects:"))

	assert.Len(t, mr.Keys(), 1)
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisFromURL("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Ping(context.Background()))

	_, err = NewRedisFromURL("http://nope")
	require.Error(t, err)
}

func TestNoop(t *testing.T) {
	var c Cache = NewNoop()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, c.DeletePrefix(ctx, "k"))
}
