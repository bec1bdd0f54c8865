package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	name string
	deps []string
}

func (n node) GetName() string           { return n.name }
func (n node) GetDependencies() []string { return n.deps }

func nodes(ns ...node) map[string]Node {
	out := make(map[string]Node, len(ns))
	for _, n := range ns {
		out[n.name] = n
	}
	return out
}

func TestTopologicalSort(t *testing.T) {
	t.Parallel()

	order, err := TopologicalSort(nodes(
		node{name: "server", deps: []string{"storage", "pipeline"}},
		node{name: "pipeline", deps: []string{"lookup_cache"}},
		node{name: "storage"},
		node{name: "lookup_cache"},
	))

	require.NoError(t, err)
	assert.Equal(t, []string{"lookup_cache", "pipeline", "storage", "server"}, order)
}

func TestTopologicalSortCycle(t *testing.T) {
	t.Parallel()

	_, err := TopologicalSort(nodes(
		node{name: "a", deps: []string{"b"}},
		node{name: "b", deps: []string{"a"}},
	))
	assert.ErrorContains(t, err, "cycle")
}

func TestValidateGraph(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateGraph(nodes(node{name: "a"}, node{name: "b", deps: []string{"a"}})))
	assert.Error(t, ValidateGraph(nodes(node{name: "b", deps: []string{"missing"}})))

	_, err := TopologicalSort(nodes(node{name: "b", deps: []string{"missing"}}))
	assert.Error(t, err)
}
