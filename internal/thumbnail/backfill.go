package thumbnail

import (
	"context"
	"log/slog"
	"sync"

	"feedloom/internal/cache"
	"feedloom/internal/logger"
	"feedloom/internal/types"
	"feedloom/internal/utils/hash"
)

const defaultConcurrency = 4

// Backfiller fills in missing thumbnails. It never fails: an item whose
// lookup errors or finds nothing is returned as it came in.
type Backfiller struct {
	searcher    Searcher
	store       cache.Store
	concurrency int
	logger      *slog.Logger
}

type Option func(*Backfiller)

// WithStore remembers lookup results, including misses, across batches.
func WithStore(store cache.Store) Option {
	return func(b *Backfiller) {
		if store != nil {
			b.store = store
		}
	}
}

func WithConcurrency(n int) Option {
	return func(b *Backfiller) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Backfiller) {
		b.logger = logger.OrDefault(l)
	}
}

func New(searcher Searcher, opts ...Option) *Backfiller {
	b := &Backfiller{
		searcher:    searcher,
		store:       cache.NoopStore(),
		concurrency: defaultConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("searcher", searcher.Name())
	return b
}

// LookupKey identifies a thumbnail lookup by the terms it searches for.
func LookupKey(item types.ContentItem) string {
	return "thumb:" + hash.Of(item.Title, string(item.Category)).ComputeHash()
}

func (b *Backfiller) Ensure(ctx context.Context, item types.ContentItem) types.ContentItem {
	if item.ThumbnailURL != "" {
		return item
	}

	key := LookupKey(item)

	cached, found, err := b.store.Get(ctx, key)
	if err != nil {
		b.logger.Warn("Thumbnail cache read failed", "error", err)
	}
	if found {
		if cached == "" {
			return item
		}
		return item.WithThumbnail(cached)
	}

	url, err := b.searcher.Search(ctx, item)
	if err != nil {
		// not cached so that a throttled lookup can succeed next time
		b.logger.Debug("Thumbnail lookup failed", "item", item.Key().String(), "error", err)
		return item
	}

	if err := b.store.Set(ctx, key, url); err != nil {
		b.logger.Warn("Thumbnail cache write failed", "error", err)
	}

	if url == "" {
		return item
	}
	return item.WithThumbnail(url)
}

// EnsureAll backfills a batch concurrently. The output has the same length
// and order as the input.
func (b *Backfiller) EnsureAll(ctx context.Context, items []types.ContentItem) []types.ContentItem {
	out := make([]types.ContentItem, len(items))
	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for i, item := range items {
		if item.ThumbnailURL != "" {
			out[i] = item
			continue
		}

		wg.Add(1)
		go func(i int, item types.ContentItem) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				out[i] = item
				return
			}
			defer func() { <-sem }()

			out[i] = b.Ensure(ctx, item)
		}(i, item)
	}

	wg.Wait()
	return out
}
