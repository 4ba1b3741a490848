package agentlab

import "github.com/brandonyhc/agentlab/pkg/agentlab/state"

// END is the terminal node identifier.
// Use this as an edge or outcome target to indicate the run should terminate.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and the current state, and return
// a partial state update: returned keys replace existing keys on merge,
// keys absent from the return value are untouched. Returning nil means
// no update.
//
// Nodes must treat the state argument as read-only and effect changes
// only through the returned update; the runner may be reading a copy of
// the state concurrently.
//
// Example:
//
//	func plan(ctx agentlab.Context, s state.State) (state.State, error) {
//	    return state.State{"current_step": "plan"}, nil
//	}
type NodeFunc func(ctx Context, s state.State) (state.State, error)

// Predicate inspects state and returns an outcome label for a routing
// rule. The label must be one of the rule's declared outcomes or the
// run fails with a RouteError. Predicates must be pure, fast reads of
// state: the engine hands them a copy, so mutations are discarded.
//
// Example:
//
//	func shouldContinue(ctx agentlab.Context, s state.State) (string, error) {
//	    if s.Int("iterations") > 3 {
//	        return "done", nil
//	    }
//	    return "loop", nil
//	}
type Predicate func(ctx Context, s state.State) (string, error)
