package sources

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feedloom/internal/normalize"
	"feedloom/internal/retry"
	"feedloom/internal/types"
)

// Backfiller fills missing thumbnails for a batch of items. It never fails;
// items it cannot resolve come back unchanged.
type Backfiller interface {
	EnsureAll(ctx context.Context, items []types.ContentItem) []types.ContentItem
}

// Fetcher runs one provider end to end: retry, normalization and thumbnail
// backfill. It never returns an error; a failing provider yields nothing.
type Fetcher struct {
	provider   Provider
	policy     retry.Policy
	normalizer *normalize.Normalizer
	backfiller Backfiller
	logger     *slog.Logger
	now        func() time.Time
}

type FetcherOption func(*Fetcher)

func WithBackfiller(b Backfiller) FetcherOption {
	return func(f *Fetcher) {
		f.backfiller = b
	}
}

func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func NewFetcher(p Provider, policy retry.Policy, minExcerptLength int, opts ...FetcherOption) *Fetcher {
	var exempt []string
	if p.ExcerptExempt() {
		exempt = append(exempt, p.Name())
	}

	f := &Fetcher{
		provider:   p,
		policy:     policy,
		normalizer: normalize.New(minExcerptLength, exempt...),
		logger:     slog.Default(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("provider", p.Name())

	return f
}

func (f *Fetcher) Name() string {
	return f.provider.Name()
}

func (f *Fetcher) Category() types.Category {
	return f.provider.Category()
}

func (f *Fetcher) Fetch(ctx context.Context, searchTerm string) (items []types.ContentItem) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Provider panicked", "panic", fmt.Sprint(r))
			items = []types.ContentItem{}
		}
	}()

	start := time.Now()

	raws, err := retry.Do(ctx, f.policy, func(ctx context.Context) ([]types.RawItem, error) {
		return f.provider.Fetch(ctx, searchTerm)
	})
	if err != nil {
		f.logger.Error("Provider fetch failed", "search", searchTerm, "error", err)
		return []types.ContentItem{}
	}

	items, rejected := f.normalizer.NormalizeAll(raws, f.now())
	if rejected > 0 {
		f.logger.Info("Rejected invalid items", "rejected", rejected, "accepted", len(items))
	}

	if f.backfiller != nil && len(items) > 0 {
		items = f.backfiller.EnsureAll(ctx, items)
	}

	f.logger.Debug("Provider fetch complete", "items", len(items), "duration", time.Since(start))
	return items
}
