package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"feedloom/internal/components"
	"feedloom/internal/config"
	"feedloom/internal/core"
	"feedloom/internal/logger"
	"feedloom/internal/state"
)

// Options override what the config file says for a single invocation.
type Options struct {
	RunOnce    bool
	Source     string
	SearchTerm string
}

type Loader struct {
	config  *config.Config
	options Options
	logger  *slog.Logger
}

func NewLoader(cfg *config.Config, opts Options, l *slog.Logger) *Loader {
	return &Loader{
		config:  cfg,
		options: opts,
		logger:  logger.OrDefault(l),
	}
}

func (l *Loader) runOnce() bool {
	return l.options.RunOnce || l.config.App.RunOnce
}

func (l *Loader) Initialize(ctx context.Context) (*state.State, error) {
	registry := components.NewRegistry()
	l.logger.Info("Initializing all components")

	comps := []components.IComponent{
		components.NewStorageComponent(l.config.Storage),
		components.NewLookupCacheComponent(l.config.Cache),
		components.NewPipelineComponent(l.config, registry, l.logger),
	}
	if !l.runOnce() {
		comps = append(comps, components.NewServerComponent(l.config.App.Name, l.config.Server, registry, l.logger))
	}

	for _, comp := range comps {
		if err := registry.Register(comp); err != nil {
			return nil, fmt.Errorf("failed to register %s component: %w", comp.Name(), err)
		}
	}

	if err := registry.InitializeAll(ctx); err != nil {
		return nil, fmt.Errorf("component initialization failed: %w", err)
	}

	l.logger.Info("All components initialized successfully")

	pipelineComp := registry.Get(components.PipelineComponentName).(*components.PipelineComponent)
	if l.options.Source != "" && !pipelineComp.Aggregator().Has(l.options.Source) {
		_ = registry.CloseAll(ctx)
		return nil, fmt.Errorf("unknown source %q, enabled sources: %v", l.options.Source, pipelineComp.Aggregator().Sources())
	}

	store := registry.Get(components.StorageComponentName).(*components.StorageComponent).Store()
	pipeline := core.NewPipeline(pipelineComp.Aggregator(), store.Contents(), core.PipelineConfig{
		Source:     l.options.Source,
		SearchTerm: l.options.SearchTerm,
	}, l.logger)

	refresher := core.NewRefresher(core.RefresherConfig{
		Name:       l.config.App.Name,
		Runner:     pipeline,
		Interval:   l.config.App.IntervalDuration(),
		RunOnce:    l.runOnce(),
		ShutdownFn: registry.CloseAll,
	})

	return state.NewState(l.config, registry, refresher), nil
}

// LoadConfig reads the config file. A missing file at the default path
// falls back to the built-in defaults.
func LoadConfig(path string, pathIsDefault bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if pathIsDefault && errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Config file not found, using defaults", "path", path)
		return config.Default(), nil
	}
	return nil, err
}

func LoadAndBuild(ctx context.Context, configPath string, pathIsDefault bool, opts Options) (*state.State, error) {
	cfg, err := LoadConfig(configPath, pathIsDefault)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.App.Name, logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	slog.SetDefault(log)

	return NewLoader(cfg, opts, log).Initialize(ctx)
}
