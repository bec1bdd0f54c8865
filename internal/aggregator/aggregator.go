package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"feedloom/internal/logger"
	"feedloom/internal/types"
	"feedloom/internal/utils"
)

// Fetcher is one provider's end-to-end fetch. It must not fail: a broken
// provider returns an empty list.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, searchTerm string) []types.ContentItem
}

// Aggregator fans a request out to its fetchers and merges what comes back.
// It holds no item state between calls.
type Aggregator struct {
	fetchers       []Fetcher
	byName         map[string]Fetcher
	maxResultItems int
	logger         *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func New(fetchers []Fetcher, maxResultItems int, rng *rand.Rand, l *slog.Logger) (*Aggregator, error) {
	if len(fetchers) == 0 {
		return nil, errors.New("aggregator needs at least one fetcher")
	}
	if maxResultItems <= 0 {
		return nil, fmt.Errorf("max result items must be positive, got %d", maxResultItems)
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	byName := make(map[string]Fetcher, len(fetchers))
	for _, f := range fetchers {
		if _, dup := byName[f.Name()]; dup {
			return nil, fmt.Errorf("duplicate fetcher %s", f.Name())
		}
		byName[f.Name()] = f
	}

	return &Aggregator{
		fetchers:       fetchers,
		byName:         byName,
		maxResultItems: maxResultItems,
		logger:         logger.OrDefault(l),
		rng:            rng,
	}, nil
}

// Sources lists the fetcher names in registration order.
func (a *Aggregator) Sources() []string {
	names := make([]string, len(a.fetchers))
	for i, f := range a.fetchers {
		names[i] = f.Name()
	}
	return names
}

func (a *Aggregator) Has(source string) bool {
	_, ok := a.byName[source]
	return ok
}

// Aggregate returns at most maxResultItems validated items. With a source
// filter only that fetcher runs and its order is kept; otherwise every
// fetcher runs and the merged result is shuffled. An empty searchTerm means
// discover mode.
func (a *Aggregator) Aggregate(ctx context.Context, sourceFilter, searchTerm string) []types.ContentItem {
	start := time.Now()

	if sourceFilter != "" {
		f, ok := a.byName[sourceFilter]
		if !ok {
			a.logger.Warn("Unknown source filter", "source", sourceFilter)
			return []types.ContentItem{}
		}

		items := utils.Take(a.run(ctx, f, searchTerm), a.maxResultItems)
		a.logger.Info("Aggregated single source", "source", sourceFilter, "items", len(items), "duration", time.Since(start))
		return items
	}

	merged := utils.Interleave(a.collect(ctx, searchTerm))
	a.shuffle(merged)
	items := utils.Take(merged, a.maxResultItems)

	a.logger.Info("Aggregated all sources", "sources", len(a.fetchers), "items", len(items), "duration", time.Since(start))
	return items
}

// collect runs every fetcher concurrently and waits for all of them. The
// result is indexed in fetcher order regardless of completion order.
func (a *Aggregator) collect(ctx context.Context, searchTerm string) [][]types.ContentItem {
	results := make([][]types.ContentItem, len(a.fetchers))
	var wg sync.WaitGroup

	for i, f := range a.fetchers {
		wg.Add(1)
		go func(i int, f Fetcher) {
			defer wg.Done()
			results[i] = a.run(ctx, f, searchTerm)
		}(i, f)
	}

	wg.Wait()
	return results
}

func (a *Aggregator) run(ctx context.Context, f Fetcher, searchTerm string) (items []types.ContentItem) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Fetcher panicked", "source", f.Name(), "panic", fmt.Sprint(r))
			items = []types.ContentItem{}
		}
	}()

	items = f.Fetch(ctx, searchTerm)
	if items == nil {
		items = []types.ContentItem{}
	}
	return items
}

func (a *Aggregator) shuffle(items []types.ContentItem) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
}
