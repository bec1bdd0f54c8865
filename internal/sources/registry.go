package sources

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"feedloom/internal/config"
	"feedloom/internal/transport"
	"feedloom/internal/types"
)

type Constructor func(t *transport.Transport, opts Options) (Provider, error)

var (
	constructors = make(map[string]Constructor)
	mu           sync.RWMutex
)

func Register(typeName string, c Constructor) {
	mu.Lock()
	defer mu.Unlock()
	constructors[typeName] = c
}

// Names lists the registered provider types.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func New(t *transport.Transport, typeName string, opts Options) (Provider, error) {
	mu.RLock()
	c, ok := constructors[typeName]
	mu.RUnlock()

	if !ok {
		return nil, &types.UnknownProviderError{Name: typeName}
	}
	return c(t, opts)
}

// FromConfig builds every enabled provider, ordered by name.
func FromConfig(t *transport.Transport, providers map[string]config.ProviderConfig, logger *slog.Logger) ([]Provider, error) {
	keys := make([]string, 0, len(providers))
	for key, pc := range providers {
		if pc.Enabled {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	built := make([]Provider, 0, len(keys))
	for _, key := range keys {
		pc := providers[key]

		p, err := New(t, pc.TypeName(key), Options{
			Name:          key,
			BaseURL:       pc.BaseURL,
			Token:         pc.Token,
			MaxItems:      pc.MaxItems,
			ExcerptExempt: pc.ExcerptExempt,
			Settings:      pc.Settings,
			Logger:        logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build provider %s: %w", key, err)
		}

		built = append(built, p)
	}

	return built, nil
}

func init() {
	Register("wikipedia", func(t *transport.Transport, o Options) (Provider, error) { return NewWikipedia(t, o), nil })
	Register("blogs", func(t *transport.Transport, o Options) (Provider, error) { return NewDevTo(t, o), nil })
	Register("books", func(t *transport.Transport, o Options) (Provider, error) { return NewOpenLibrary(t, o), nil })
	Register("textbooks", func(t *transport.Transport, o Options) (Provider, error) { return NewOpenStax(t, o), nil })
	Register("github", func(t *transport.Transport, o Options) (Provider, error) { return NewGitHub(t, o), nil })
	Register("arxiv", func(t *transport.Transport, o Options) (Provider, error) { return NewArxiv(t, o), nil })
	Register("feeds", func(t *transport.Transport, o Options) (Provider, error) {
		f, err := NewFeeds(t, o)
		if err != nil {
			return nil, err
		}
		return f, nil
	})
	Register("script", func(t *transport.Transport, o Options) (Provider, error) {
		s, err := NewScript(t, o)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
