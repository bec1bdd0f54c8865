package components

import (
	"context"
	"fmt"
	"log/slog"

	"feedloom/internal/config"
	"feedloom/internal/dedupe"
	"feedloom/internal/server"
	"feedloom/internal/storage"
)

type ServerComponent struct {
	name     string
	config   config.ServerConfig
	registry *Registry
	logger   *slog.Logger
	server   *server.Server
}

func NewServerComponent(name string, cfg config.ServerConfig, registry *Registry, logger *slog.Logger) *ServerComponent {
	return &ServerComponent{
		name:     name,
		config:   cfg,
		registry: registry,
		logger:   logger,
	}
}

func (c *ServerComponent) Name() string {
	return ServerComponentName
}

func (c *ServerComponent) Dependencies() []string {
	return []string{StorageComponentName, PipelineComponentName}
}

func (c *ServerComponent) Validate() error {
	if c.config.PageSize <= 0 {
		return fmt.Errorf("server: page_size must be positive")
	}
	return nil
}

func (c *ServerComponent) Initialize(ctx context.Context) error {
	store := c.registry.Get(StorageComponentName).(*StorageComponent).Store()
	pipeline := c.registry.Get(PipelineComponentName).(*PipelineComponent)

	sources := make([]server.Source, 0, len(pipeline.Sources()))
	for _, s := range pipeline.Sources() {
		sources = append(sources, server.Source{ID: s.Name, ContentType: s.Category})
	}

	c.server = server.New(server.Config{
		Name:     c.name,
		Port:     c.config.Port,
		PageSize: c.config.PageSize,
		FeedSize: c.config.FeedSize,
		Sources:  sources,
	}, pipeline.Aggregator(), dedupe.New(storage.NewLookup(store), c.logger), store, c.logger)

	if err := c.server.Start(ctx); err != nil {
		return fmt.Errorf("server: failed to start: %w", err)
	}
	return nil
}

func (c *ServerComponent) Close(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}

func (c *ServerComponent) Server() *server.Server {
	return c.server
}
