package components

import (
	"context"
	"fmt"
	"log/slog"

	"feedloom/internal/aggregator"
	"feedloom/internal/config"
	"feedloom/internal/logger"
	"feedloom/internal/retry"
	"feedloom/internal/sources"
	"feedloom/internal/thumbnail"
	"feedloom/internal/transport"
	"feedloom/internal/types"
)

type SourceInfo struct {
	Name     string
	Category types.Category
}

// PipelineComponent wires transport, providers, thumbnail backfill and the
// aggregator from configuration.
type PipelineComponent struct {
	config     *config.Config
	registry   *Registry
	logger     *slog.Logger
	transport  *transport.Transport
	aggregator *aggregator.Aggregator
	sources    []SourceInfo
}

func NewPipelineComponent(cfg *config.Config, registry *Registry, l *slog.Logger) *PipelineComponent {
	return &PipelineComponent{config: cfg, registry: registry, logger: logger.OrDefault(l)}
}

func (c *PipelineComponent) Name() string {
	return PipelineComponentName
}

func (c *PipelineComponent) Dependencies() []string {
	return []string{LookupCacheComponentName}
}

func (c *PipelineComponent) Validate() error {
	if c.config.Aggregator.MaxResultItems <= 0 {
		return fmt.Errorf("pipeline: max_result_items must be positive")
	}
	return nil
}

func (c *PipelineComponent) Initialize(ctx context.Context) error {
	agg := c.config.Aggregator
	limit := c.config.RateLimit

	c.transport = transport.New(
		transport.NewLimiter(limit.MaxRequests, limit.PerDuration()),
		agg.RequestTimeoutDuration(),
	)

	providers, err := sources.FromConfig(c.transport, c.config.Providers, c.logger)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	policy := retry.DefaultPolicy()
	policy.MaxRetries = agg.MaxRetries
	policy.Delay = agg.RetryDelayDuration()

	opts := []sources.FetcherOption{sources.WithLogger(c.logger)}
	if backfiller := c.backfiller(); backfiller != nil {
		opts = append(opts, sources.WithBackfiller(backfiller))
	}

	fetchers := make([]aggregator.Fetcher, 0, len(providers))
	c.sources = make([]SourceInfo, 0, len(providers))
	for _, p := range providers {
		fetchers = append(fetchers, sources.NewFetcher(p, policy, agg.MinExcerptLength, opts...))
		c.sources = append(c.sources, SourceInfo{Name: p.Name(), Category: p.Category()})
	}

	c.aggregator, err = aggregator.New(fetchers, agg.MaxResultItems, nil, c.logger)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	c.logger.Info("Pipeline ready", "providers", len(providers), "thumbnails", c.config.Thumbnails.Searcher)
	return nil
}

func (c *PipelineComponent) backfiller() *thumbnail.Backfiller {
	thumbs := c.config.Thumbnails
	if !thumbs.Enabled {
		return nil
	}

	var searcher thumbnail.Searcher
	switch thumbs.Searcher {
	case "wikimedia":
		searcher = thumbnail.NewWikimediaSearcher(c.transport, "")
	case "unsplash":
		searcher = thumbnail.NewUnsplashSearcher(c.transport, "", thumbs.AccessKey)
	case "opengraph":
		searcher = thumbnail.NewOpenGraphSearcher(c.transport)
	default:
		return nil
	}

	store := c.registry.Get(LookupCacheComponentName).(*LookupCacheComponent).Store()
	return thumbnail.New(searcher,
		thumbnail.WithStore(store),
		thumbnail.WithConcurrency(thumbs.Concurrency),
		thumbnail.WithLogger(c.logger),
	)
}

func (c *PipelineComponent) Close(ctx context.Context) error {
	return nil
}

func (c *PipelineComponent) Aggregator() *aggregator.Aggregator {
	return c.aggregator
}

func (c *PipelineComponent) Sources() []SourceInfo {
	return c.sources
}
