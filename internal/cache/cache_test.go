package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedCache(t *testing.T) {
	t.Parallel()

	c := NewCache[int, string](CacheConfig{TTL: time.Minute}, func(k int) string { return string(rune('a' + k)) })

	_, ok := c.Get(1)
	assert.False(t, ok)

	c.Set(1, "one")
	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "one", v)

	c.Clear()
	_, ok = c.Get(1)
	assert.False(t, ok)
}

func TestMemoryStoreRemembersEmptyValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Set(ctx, "k", ""))

	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, v)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	s, err := NewRedisStore(ctx, "redis://"+mr.Addr()+"/0", "feedloom:thumb:", time.Hour)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "abc", "https://img.example/a.png"))

	v, found, err := s.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "https://img.example/a.png", v)

	assert.True(t, mr.Exists("feedloom:thumb:abc"))
	assert.Equal(t, time.Hour, mr.TTL("feedloom:thumb:abc"))
}

func TestRedisStoreBadURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisStore(context.Background(), "not-a-url", "", time.Hour)
	assert.Error(t, err)
}
