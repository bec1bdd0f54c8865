package components

import (
	"context"
	"fmt"

	"feedloom/internal/cache"
	"feedloom/internal/config"
)

// LookupCacheComponent owns the store that remembers thumbnail lookups.
type LookupCacheComponent struct {
	config config.CacheConfig
	store  cache.Store
}

func NewLookupCacheComponent(cfg config.CacheConfig) *LookupCacheComponent {
	return &LookupCacheComponent{config: cfg}
}

func (c *LookupCacheComponent) Name() string {
	return LookupCacheComponentName
}

func (c *LookupCacheComponent) Dependencies() []string {
	return []string{}
}

func (c *LookupCacheComponent) Validate() error {
	if c.config.Backend == "redis" && c.config.RedisURL == "" {
		return fmt.Errorf("lookup cache: redis_url is required for the redis backend")
	}
	return nil
}

func (c *LookupCacheComponent) Initialize(ctx context.Context) error {
	switch c.config.Backend {
	case "redis":
		store, err := cache.NewRedisStore(ctx, c.config.RedisURL, "feedloom", c.config.TTLDuration())
		if err != nil {
			return fmt.Errorf("lookup cache: %w", err)
		}
		c.store = store
	case "none":
		c.store = cache.NoopStore()
	default:
		c.store = cache.NewMemoryStore(c.config.TTLDuration())
	}
	return nil
}

func (c *LookupCacheComponent) Close(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *LookupCacheComponent) Store() cache.Store {
	return c.store
}
