// Package metric computes named, timestamped values from pipeline state
// snapshots. Calculators are pure functions of state: a fresh instance
// is created per computation and a structurally missing field yields a
// neutral zero, never an error.
package metric

import (
	"fmt"
	"time"

	"github.com/brandonyhc/agentlab/pkg/agentlab/registry"
	"github.com/brandonyhc/agentlab/pkg/agentlab/state"
)

// Kind enumerates the built-in metric calculators.
type Kind string

// Built-in metric kinds.
const (
	KindMessageCount       Kind = "message_count"
	KindKnowledgeNodeCount Kind = "knowledge_node_count"
	KindKnowledgeEdgeCount Kind = "knowledge_edge_count"
	KindAveragePerplexity  Kind = "average_perplexity"
	KindIterationCount     Kind = "iteration_count"
)

// Calculator derives one value from a state snapshot.
// Implementations must not fail on structurally missing fields;
// metrics degrade gracefully on partial state.
type Calculator interface {
	// Name is the metric's stable identifier.
	Name() string
	// Description is a human-readable summary of what is measured.
	Description() string
	// Calculate computes the value against the given state.
	Calculate(s state.State) float64
}

// Value is one computed metric: name, description, value, and the
// moment it was computed.
type Value struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Value       float64   `json:"value"`
	Timestamp   time.Time `json:"timestamp"`
}

var factories = registry.New[Kind, func() Calculator]()

// RegisterKind makes a calculator constructor available under a kind.
// Built-in kinds are registered at init; callers may add their own.
func RegisterKind(kind Kind, factory func() Calculator) {
	factories.Register(kind, factory)
}

// ForKind instantiates a fresh calculator for the kind.
func ForKind(kind Kind) (Calculator, error) {
	factory, ok := factories.Get(kind)
	if !ok {
		return nil, fmt.Errorf("unknown metric kind: %q", kind)
	}
	return factory(), nil
}

// Kinds returns all registered metric kinds.
func Kinds() []Kind {
	return factories.Keys()
}

// Compute runs each kind's calculator against the state and collects
// the results. Unknown kinds are skipped; calculators are stateless
// definitions, so every call instantiates them fresh.
func Compute(kinds []Kind, s state.State) []Value {
	values := make([]Value, 0, len(kinds))
	for _, kind := range kinds {
		calc, err := ForKind(kind)
		if err != nil {
			continue
		}
		values = append(values, Value{
			Name:        calc.Name(),
			Description: calc.Description(),
			Value:       calc.Calculate(s),
			Timestamp:   time.Now().UTC(),
		})
	}
	return values
}
