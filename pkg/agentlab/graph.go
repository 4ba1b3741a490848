package agentlab

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// AddConditionalEdges, and SetEntry calls to define the workflow.
//
// Graph is NOT safe for concurrent building. Construct it from a single
// goroutine, then call Compile() to create an immutable CompiledGraph
// that can be safely shared.
//
// Example:
//
//	graph := agentlab.NewGraph().
//	    AddNode("analyze", analyzeNode).
//	    AddNode("plan", planNode).
//	    AddEdge("analyze", "plan").
//	    AddEdge("plan", agentlab.END).
//	    SetEntry("analyze")
//
//	compiled, err := graph.Compile()
type Graph struct {
	mu         sync.RWMutex
	nodes      map[string]NodeFunc
	edges      map[string]string
	rules      map[string]routingRule
	entryPoint string

	// Definition violations collected during building; surfaced at
	// Compile() alongside structural checks so the caller sees every
	// problem at once.
	defects []error
}

// routingRule is a conditional transition: predicate output selects the
// next node from the outcome map.
type routingRule struct {
	predicate Predicate
	outcomes  map[string]string
}

// NewGraph creates a new graph builder.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]NodeFunc),
		edges: make(map[string]string),
		rules: make(map[string]routingRule),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - name is empty
//   - name is the reserved word "END" or "__end__" (case-insensitive)
//   - name contains whitespace (space, tab, newline)
//   - fn is nil
//
// Registering the same name twice is recorded as a definition violation
// and surfaced by Compile(); the first registration wins.
func (g *Graph) AddNode(name string, fn NodeFunc) *Graph {
	if name == "" {
		panic("agentlab: node name cannot be empty")
	}

	// Check reserved words (case-insensitive)
	nameLower := strings.ToLower(name)
	if nameLower == "end" || nameLower == "__end__" {
		panic("agentlab: node name cannot be reserved word 'END'")
	}

	if strings.ContainsAny(name, " \t\n\r") {
		panic("agentlab: node name cannot contain whitespace")
	}

	if fn == nil {
		panic("agentlab: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[name]; exists {
		g.defects = append(g.defects, fmt.Errorf("%w: %s", ErrDuplicateNode, name))
		return g
	}

	g.nodes[name] = fn
	return g
}

// AddEdge adds an unconditional edge from one node to another.
// The target can be a node name or agentlab.END.
// Returns the graph for method chaining.
//
// Edge validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	if prev, exists := g.edges[from]; exists && prev != to {
		g.defects = append(g.defects,
			fmt.Errorf("%w: %s already has edge to %s", ErrConflictingRoute, from, prev))
		return g
	}

	g.edges[from] = to
	return g
}

// AddConditionalEdges registers a routing rule: after from executes,
// predicate inspects the state and its returned label selects the next
// node from outcomes. Every label the predicate can produce must appear
// in outcomes or the run fails with a RouteError at that point.
// Outcome targets may be node names or agentlab.END.
// Returns the graph for method chaining.
//
// Panics if predicate is nil or outcomes is empty.
func (g *Graph) AddConditionalEdges(from string, predicate Predicate, outcomes map[string]string) *Graph {
	if predicate == nil {
		panic("agentlab: routing predicate cannot be nil")
	}
	if len(outcomes) == 0 {
		panic("agentlab: routing rule needs at least one outcome")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.rules[from]; exists {
		g.defects = append(g.defects,
			fmt.Errorf("%w: %s already has a routing rule", ErrConflictingRoute, from))
		return g
	}

	// Copy the outcome map so later caller mutations don't leak in.
	copied := make(map[string]string, len(outcomes))
	for label, target := range outcomes {
		copied[label] = target
	}

	g.rules[from] = routingRule{predicate: predicate, outcomes: copied}
	return g
}

// SetEntry designates the entry point node.
// This must be called before Compile().
// Returns the graph for method chaining.
//
// Entry point validation happens at Compile() time.
func (g *Graph) SetEntry(name string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = name
	return g
}
