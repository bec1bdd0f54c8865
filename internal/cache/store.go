package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a string key/value cache that may live outside the process.
// Lookups that miss return found == false and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

type memoryStore struct {
	cache *Cache[string, string]
}

func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		cache: NewCache[string, string](CacheConfig{TTL: ttl}, func(k string) string { return k }),
	}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.cache.Get(key)
	return v, ok, nil
}

func (m *memoryStore) Set(_ context.Context, key, value string) error {
	m.cache.Set(key, value)
	return nil
}

func (m *memoryStore) Close() error {
	m.cache.Clear()
	return nil
}

type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to the given redis:// URL. Keys are namespaced by
// prefix so several deployments can share one server.
func NewRedisStore(ctx context.Context, url, prefix string, ttl time.Duration) (Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisStore{client: client, prefix: prefix, ttl: ttl}, nil
}

func (r *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *redisStore) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, r.ttl).Err()
}

func (r *redisStore) Close() error {
	return r.client.Close()
}

type noopStore struct{}

// NoopStore never remembers anything.
func NoopStore() Store {
	return noopStore{}
}

func (noopStore) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (noopStore) Set(context.Context, string, string) error         { return nil }
func (noopStore) Close() error                                      { return nil }
