package agentlab

import (
	"fmt"
)

// Compile validates the graph and creates an executable CompiledGraph.
// All violations are collected and returned together in a
// *ValidationError, not just the first.
//
// Validation checks:
//  1. No duplicate node registrations or conflicting routes (recorded
//     while building)
//  2. Entry point is set and references an existing node
//  3. All edge sources and targets reference existing nodes (or END)
//  4. All routing rule sources and outcome targets reference existing
//     nodes (or END)
//  5. A node has either an edge or a routing rule, never both
//  6. Every node is reachable from the entry point
func (g *Graph) Compile() (*CompiledGraph, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	issues := make([]error, 0, len(g.defects))
	issues = append(issues, g.defects...)

	// Entry point
	if g.entryPoint == "" {
		issues = append(issues, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		issues = append(issues, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	// Edge references
	for from, to := range g.edges {
		if _, exists := g.nodes[from]; !exists {
			issues = append(issues, fmt.Errorf("%w: edge source %q", ErrNodeNotFound, from))
		}
		if to != END {
			if _, exists := g.nodes[to]; !exists {
				issues = append(issues, fmt.Errorf("%w: edge target %q", ErrNodeNotFound, to))
			}
		}
		if _, hasRule := g.rules[from]; hasRule {
			issues = append(issues, fmt.Errorf("%w: %s", ErrConflictingRoute, from))
		}
	}

	// Routing rule references: every declared outcome must map to a
	// registered node so an uncovered label can never route blind.
	for from, rule := range g.rules {
		if _, exists := g.nodes[from]; !exists {
			issues = append(issues, fmt.Errorf("%w: routing rule source %q", ErrNodeNotFound, from))
		}
		for label, target := range rule.outcomes {
			if target == END {
				continue
			}
			if _, exists := g.nodes[target]; !exists {
				issues = append(issues,
					fmt.Errorf("%w: outcome %q of %q targets %q", ErrNodeNotFound, label, from, target))
			}
		}
	}

	// Reachability. Outcome maps declare every possible conditional
	// target, so reachability is exact, not a heuristic.
	if g.entryPoint != "" {
		if _, exists := g.nodes[g.entryPoint]; exists {
			reachable := g.findReachableNodes()
			for name := range g.nodes {
				if !reachable[name] {
					issues = append(issues, fmt.Errorf("%w: %s", ErrUnreachableNode, name))
				}
			}
		}
	}

	if len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	return g.buildCompiledGraph(), nil
}

// findReachableNodes returns the set of nodes reachable from the entry
// point, following unconditional edges and all declared outcomes.
func (g *Graph) findReachableNodes() map[string]bool {
	reachable := make(map[string]bool)

	queue := []string{g.entryPoint}
	reachable[g.entryPoint] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		visit := func(target string) {
			if target != END && !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}

		if to, ok := g.edges[current]; ok {
			visit(to)
		}
		if rule, ok := g.rules[current]; ok {
			for _, target := range rule.outcomes {
				visit(target)
			}
		}
	}

	return reachable
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph) buildCompiledGraph() *CompiledGraph {
	nodes := make(map[string]NodeFunc, len(g.nodes))
	for name, fn := range g.nodes {
		nodes[name] = fn
	}

	edges := make(map[string]string, len(g.edges))
	for from, to := range g.edges {
		edges[from] = to
	}

	rules := make(map[string]routingRule, len(g.rules))
	for from, rule := range g.rules {
		outcomes := make(map[string]string, len(rule.outcomes))
		for label, target := range rule.outcomes {
			outcomes[label] = target
		}
		rules[from] = routingRule{predicate: rule.predicate, outcomes: outcomes}
	}

	// Pre-compute predecessors for introspection.
	predecessors := make(map[string][]string)
	for from, to := range edges {
		if to != END {
			predecessors[to] = append(predecessors[to], from)
		}
	}
	for from, rule := range rules {
		seen := make(map[string]bool)
		for _, target := range rule.outcomes {
			if target != END && !seen[target] {
				predecessors[target] = append(predecessors[target], from)
				seen[target] = true
			}
		}
	}

	return &CompiledGraph{
		nodes:        nodes,
		edges:        edges,
		rules:        rules,
		entryPoint:   g.entryPoint,
		predecessors: predecessors,
	}
}
