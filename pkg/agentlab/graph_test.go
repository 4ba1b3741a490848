package agentlab

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brandonyhc/agentlab/pkg/agentlab/state"
)

// TestNewGraph tests graph creation.
func TestNewGraph(t *testing.T) {
	graph := NewGraph()

	assert.NotNil(t, graph)
	assert.Empty(t, graph.nodes)
	assert.Empty(t, graph.edges)
	assert.Empty(t, graph.rules)
}

// TestAddNode_Chaining tests fluent API returns the same graph.
func TestAddNode_Chaining(t *testing.T) {
	graph := NewGraph()

	result := graph.
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		SetEntry("a")

	assert.Same(t, graph, result)
	assert.Len(t, graph.nodes, 2)
}

// TestAddNode_PanicsOnEmptyName tests empty node name rejection.
func TestAddNode_PanicsOnEmptyName(t *testing.T) {
	assert.Panics(t, func() {
		NewGraph().AddNode("", increment)
	})
}

// TestAddNode_PanicsOnReservedName tests END is reserved.
func TestAddNode_PanicsOnReservedName(t *testing.T) {
	reserved := []string{"END", "end", "End", "__end__", "__END__"}
	for _, name := range reserved {
		assert.Panics(t, func() {
			NewGraph().AddNode(name, increment)
		}, "name %q should be reserved", name)
	}
}

// TestAddNode_PanicsOnWhitespace tests whitespace in names.
func TestAddNode_PanicsOnWhitespace(t *testing.T) {
	for _, name := range []string{"a b", "a\tb", "a\nb"} {
		assert.Panics(t, func() {
			NewGraph().AddNode(name, increment)
		}, "name %q should be rejected", name)
	}
}

// TestAddNode_PanicsOnNilFunc tests nil node function rejection.
func TestAddNode_PanicsOnNilFunc(t *testing.T) {
	assert.Panics(t, func() {
		NewGraph().AddNode("a", nil)
	})
}

// TestAddNode_DuplicateSurfacedAtCompile tests duplicate registration
// is a compile error, not a panic, and the first registration wins.
func TestAddNode_DuplicateSurfacedAtCompile(t *testing.T) {
	first := func(ctx Context, s state.State) (state.State, error) {
		return state.State{"who": "first"}, nil
	}
	second := func(ctx Context, s state.State) (state.State, error) {
		return state.State{"who": "second"}, nil
	}

	graph := NewGraph().
		AddNode("a", first).
		AddNode("a", second).
		AddEdge("a", END).
		SetEntry("a")

	_, err := graph.Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateNode)

	// First registration is still the one stored.
	update, nodeErr := graph.nodes["a"](testCtx(), state.New())
	require.NoError(t, nodeErr)
	assert.Equal(t, "first", update.String("who"))
}

// TestAddEdge_ConflictSurfacedAtCompile tests retargeting an edge.
func TestAddEdge_ConflictSurfacedAtCompile(t *testing.T) {
	graph := NewGraph().
		AddNode("a", increment).
		AddNode("b", increment).
		AddNode("c", increment).
		AddEdge("a", "b").
		AddEdge("a", "c"). // conflicting retarget
		AddEdge("b", END).
		AddEdge("c", END).
		SetEntry("a")

	_, err := graph.Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflictingRoute)
}

// TestAddEdge_SameTargetIdempotent tests re-adding the identical edge.
func TestAddEdge_SameTargetIdempotent(t *testing.T) {
	graph := NewGraph().
		AddNode("a", increment).
		AddEdge("a", END).
		AddEdge("a", END).
		SetEntry("a")

	_, err := graph.Compile()
	assert.NoError(t, err)
}

// TestAddConditionalEdges_PanicsOnNilPredicate tests nil predicate.
func TestAddConditionalEdges_PanicsOnNilPredicate(t *testing.T) {
	assert.Panics(t, func() {
		NewGraph().AddConditionalEdges("a", nil, map[string]string{"x": END})
	})
}

// TestAddConditionalEdges_PanicsOnEmptyOutcomes tests empty outcome map.
func TestAddConditionalEdges_PanicsOnEmptyOutcomes(t *testing.T) {
	assert.Panics(t, func() {
		NewGraph().AddConditionalEdges("a", routeOn("next"), nil)
	})
}

// TestAddConditionalEdges_CopiesOutcomes tests the outcome map is
// copied, so caller mutations after registration don't leak in.
func TestAddConditionalEdges_CopiesOutcomes(t *testing.T) {
	outcomes := map[string]string{"done": END}

	graph := NewGraph().
		AddNode("a", increment).
		AddConditionalEdges("a", routeOn("next"), outcomes).
		SetEntry("a")

	outcomes["done"] = "nowhere"
	outcomes["extra"] = "nowhere"

	compiled, err := graph.Compile()
	require.NoError(t, err)

	rule, ok := compiled.getRule("a")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"done": END}, rule.outcomes)
}

// TestAddConditionalEdges_DuplicateRuleSurfacedAtCompile tests a second
// rule on the same node is a compile error.
func TestAddConditionalEdges_DuplicateRuleSurfacedAtCompile(t *testing.T) {
	graph := NewGraph().
		AddNode("a", increment).
		AddConditionalEdges("a", routeOn("next"), map[string]string{"done": END}).
		AddConditionalEdges("a", routeOn("other"), map[string]string{"done": END}).
		SetEntry("a")

	_, err := graph.Compile()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConflictingRoute)
}

// TestGraph_BuilderDefectsAccumulate tests multiple defects are all kept.
func TestGraph_BuilderDefectsAccumulate(t *testing.T) {
	graph := NewGraph().
		AddNode("a", increment).
		AddNode("a", increment). // duplicate
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("a", END). // conflict
		AddEdge("b", END).
		SetEntry("a")

	_, err := graph.Compile()

	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.GreaterOrEqual(t, len(verr.Issues), 2)
}
