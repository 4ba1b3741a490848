package agentlab

import (
	"context"

	"github.com/brandonyhc/agentlab/pkg/agentlab/state"
)

// Helper node functions

// increment is a node that increments the "count" field.
func increment(ctx Context, s state.State) (state.State, error) {
	return state.State{"count": s.Int("count") + 1}, nil
}

// passthrough returns no update.
func passthrough(ctx Context, s state.State) (state.State, error) {
	return nil, nil
}

// makeTrackingNode creates a node that records its execution.
func makeTrackingNode(name string, tracker *[]string) NodeFunc {
	return func(ctx Context, s state.State) (state.State, error) {
		*tracker = append(*tracker, name)
		visited := append(s.Slice("visited"), name)
		return state.State{"visited": visited}, nil
	}
}

// makeFailingNode creates a node that returns the given error.
func makeFailingNode(err error) NodeFunc {
	return func(ctx Context, s state.State) (state.State, error) {
		return nil, err
	}
}

// makePanicNode creates a node that panics with the given value.
func makePanicNode(value any) NodeFunc {
	return func(ctx Context, s state.State) (state.State, error) {
		panic(value)
	}
}

// routeOn returns a predicate that reads the outcome from a state field.
func routeOn(field string) Predicate {
	return func(ctx Context, s state.State) (string, error) {
		return s.String(field), nil
	}
}

// visitedNames converts the "visited" slice to []string for assertions.
func visitedNames(s state.State) []string {
	raw := s.Slice("visited")
	names := make([]string, 0, len(raw))
	for _, v := range raw {
		if name, ok := v.(string); ok {
			names = append(names, name)
		}
	}
	return names
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}
