package components

import (
	"context"
	"fmt"
	"log/slog"

	"feedloom/internal/graph"
)

type IComponent interface {
	Name() string
	Dependencies() []string
	Validate() error
	Initialize(ctx context.Context) error
	Close(ctx context.Context) error
}

const (
	StorageComponentName     = "storage"
	LookupCacheComponentName = "lookup_cache"
	PipelineComponentName    = "pipeline"
	ServerComponentName      = "server"
)

// Registry initializes components in dependency order and closes them in
// reverse.
type Registry struct {
	components map[string]IComponent
	order      []string
}

func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]IComponent),
		order:      make([]string, 0),
	}
}

func (r *Registry) Register(component IComponent) error {
	name := component.Name()
	if _, exists := r.components[name]; exists {
		return fmt.Errorf("component %s already registered", name)
	}
	r.components[name] = component
	return nil
}

func (r *Registry) Get(name string) IComponent {
	comp, exists := r.components[name]
	if !exists {
		panic(fmt.Sprintf("component %s not found", name))
	}
	return comp
}

func (r *Registry) Has(name string) bool {
	_, exists := r.components[name]
	return exists
}

func (r *Registry) InitializeAll(ctx context.Context) error {
	nodes := make(map[string]graph.Node)
	for name, comp := range r.components {
		nodes[name] = &componentNode{comp: comp}
	}

	if err := graph.ValidateGraph(nodes); err != nil {
		return err
	}

	order, err := graph.TopologicalSort(nodes)
	if err != nil {
		return err
	}

	for _, name := range order {
		comp := r.components[name]
		if err := comp.Validate(); err != nil {
			return fmt.Errorf("component %s validation failed: %w", name, err)
		}
	}

	for _, name := range order {
		comp := r.components[name]
		slog.Debug("Initializing component", "component", name)
		if err := comp.Initialize(ctx); err != nil {
			r.closeInitialized(ctx)
			return fmt.Errorf("component %s initialization failed: %w", name, err)
		}
		r.order = append(r.order, name)
	}

	return nil
}

type componentNode struct {
	comp IComponent
}

func (cn *componentNode) GetName() string {
	return cn.comp.Name()
}

func (cn *componentNode) GetDependencies() []string {
	return cn.comp.Dependencies()
}

func (r *Registry) CloseAll(ctx context.Context) error {
	r.closeInitialized(ctx)
	return nil
}

func (r *Registry) closeInitialized(ctx context.Context) {
	for i := len(r.order) - 1; i >= 0; i-- {
		name := r.order[i]
		if err := r.components[name].Close(ctx); err != nil {
			slog.Error("Error closing component", "component", name, "error", err)
		}
	}
	r.order = r.order[:0]
}
