package agentlab

import "sort"

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is safe to share: it can run many Invoke() calls
// concurrently (each with its own thread ID), and its structure cannot
// be modified after compilation.
//
// Use the introspection methods (NodeIDs, Successors, etc.) to examine
// the graph structure for debugging or visualization.
type CompiledGraph struct {
	nodes      map[string]NodeFunc
	edges      map[string]string
	rules      map[string]routingRule
	entryPoint string

	// Pre-computed for introspection
	predecessors map[string][]string
}

// EntryPoint returns the entry node name.
func (cg *CompiledGraph) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node names in the graph, sorted.
func (cg *CompiledGraph) NodeIDs() []string {
	ids := make([]string, 0, len(cg.nodes))
	for name := range cg.nodes {
		ids = append(ids, name)
	}
	sort.Strings(ids)
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph) HasNode(name string) bool {
	_, exists := cg.nodes[name]
	return exists
}

// Successors returns every node the given node can transition to: the
// unconditional edge target, or all declared outcome targets of its
// routing rule. END is omitted. Returns nil for terminal or unknown nodes.
func (cg *CompiledGraph) Successors(name string) []string {
	if to, ok := cg.edges[name]; ok {
		if to == END {
			return nil
		}
		return []string{to}
	}
	rule, ok := cg.rules[name]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var targets []string
	for _, target := range rule.outcomes {
		if target != END && !seen[target] {
			targets = append(targets, target)
			seen[target] = true
		}
	}
	sort.Strings(targets)
	return targets
}

// Predecessors returns the node names that can transition to the given
// node. Returns nil for the entry node or unknown nodes.
func (cg *CompiledGraph) Predecessors(name string) []string {
	return cg.predecessors[name]
}

// IsConditional returns true if the node routes via a predicate.
func (cg *CompiledGraph) IsConditional(name string) bool {
	_, exists := cg.rules[name]
	return exists
}

// IsTerminal returns true if the node has no outgoing edge and no
// routing rule: reaching it ends the run after it executes.
func (cg *CompiledGraph) IsTerminal(name string) bool {
	if _, ok := cg.edges[name]; ok {
		return false
	}
	_, ok := cg.rules[name]
	return !ok
}

// getNode returns the node function for the given name.
// Used internally by the executor.
func (cg *CompiledGraph) getNode(name string) (NodeFunc, bool) {
	fn, exists := cg.nodes[name]
	return fn, exists
}

// getRule returns the routing rule for the given node.
// Used internally by the executor.
func (cg *CompiledGraph) getRule(name string) (routingRule, bool) {
	rule, exists := cg.rules[name]
	return rule, exists
}

// getEdge returns the unconditional edge target for the given node.
// Used internally by the executor.
func (cg *CompiledGraph) getEdge(name string) (string, bool) {
	to, exists := cg.edges[name]
	return to, exists
}
