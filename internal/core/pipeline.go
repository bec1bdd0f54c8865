package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"feedloom/internal/logger"
	"feedloom/internal/types"
)

type Aggregator interface {
	Aggregate(ctx context.Context, sourceFilter, searchTerm string) []types.ContentItem
}

type Persister interface {
	PersistAll(ctx context.Context, items []types.ContentItem) ([]int64, error)
}

// Pipeline is one refresh: aggregate, then persist what came back.
type Pipeline struct {
	aggregator Aggregator
	store      Persister
	source     string
	searchTerm string
	logger     *slog.Logger
}

type PipelineConfig struct {
	Source     string
	SearchTerm string
}

func NewPipeline(aggregator Aggregator, store Persister, config PipelineConfig, l *slog.Logger) *Pipeline {
	return &Pipeline{
		aggregator: aggregator,
		store:      store,
		source:     config.Source,
		searchTerm: config.SearchTerm,
		logger:     logger.OrDefault(l).With("component", "pipeline"),
	}
}

// Run returns the number of items persisted.
func (p *Pipeline) Run(ctx context.Context) (int, error) {
	start := time.Now()
	p.logger.Info("Starting refresh", "source", p.source, "search", p.searchTerm)

	items := p.aggregator.Aggregate(ctx, p.source, p.searchTerm)
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if len(items) == 0 {
		p.logger.Warn("Refresh produced no items", "duration", time.Since(start))
		return 0, nil
	}

	ids, err := p.store.PersistAll(ctx, items)
	if err != nil {
		return 0, fmt.Errorf("failed to persist %d items: %w", len(items), err)
	}

	p.logger.Info("Refresh complete", "items", len(ids), "duration", time.Since(start))
	return len(ids), nil
}
