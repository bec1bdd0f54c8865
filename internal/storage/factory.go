package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"feedloom/internal/config"
)

// Factory opens a backend and brings its schema up to date.
type Factory func(ctx context.Context, cfg config.StorageConfig) (StorageInterface, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// RegisterFactory is called from a backend package's init.
func RegisterFactory(storageType string, fn Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[storageType] = fn
}

func Types() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func New(ctx context.Context, cfg config.StorageConfig) (StorageInterface, error) {
	storageType := cfg.Type
	if storageType == "" {
		storageType = "sqlite"
	}

	factoriesMu.RLock()
	fn, ok := factories[storageType]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported storage type %q (available: %v)", storageType, Types())
	}

	return fn(ctx, cfg)
}
