package state

import (
	"context"

	"feedloom/internal/components"
	"feedloom/internal/config"
	"feedloom/internal/core"
)

// State is the running application: its config, the initialized
// components and the refresher.
type State struct {
	Config    *config.Config
	Registry  *components.Registry
	Refresher *core.Refresher
}

func NewState(cfg *config.Config, registry *components.Registry, refresher *core.Refresher) *State {
	return &State{
		Config:    cfg,
		Registry:  registry,
		Refresher: refresher,
	}
}

func (s *State) Close(ctx context.Context) error {
	return s.Registry.CloseAll(ctx)
}
