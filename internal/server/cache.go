package server

import (
	"fmt"

	"feedloom/internal/cache"
)

type CacheKey struct {
	Name string
	Type string
}

func NewCacheKey(name, feedType string) CacheKey {
	return CacheKey{
		Name: name,
		Type: feedType,
	}
}

func (k CacheKey) ToString() string {
	return fmt.Sprintf("%s:%s", k.Name, k.Type)
}

// NewCache holds rendered feed documents until the next persist.
func NewCache(config cache.CacheConfig) *cache.Cache[CacheKey, string] {
	return cache.NewCache[CacheKey, string](config, func(k CacheKey) string {
		return k.ToString()
	})
}

const TypeRSS = "rss"
const TypeAtom = "atom"
const TypeJSON = "json"
