/*
Package agentlab provides graph-based orchestration for agent
experiment pipelines.

# Overview

agentlab executes directed workflow graphs where nodes transform a
shared key/value state and edges define flow. It is built for running
self-improving agent experiments: every node execution is checkpointed,
runs can be resumed after a crash, and an experiment runner captures
periodic state snapshots and metrics alongside the workflow.

Key properties:
  - Compile-time validation of graph structure
  - Partial state updates merged shallowly after each node
  - Append-only checkpoint log per thread with crash recovery
  - OpenTelemetry metrics and tracing with no-op fallbacks

# Basic Usage

Build a graph, compile it, and invoke:

	func analyze(ctx agentlab.Context, s state.State) (state.State, error) {
	    return state.State{"analysis": "done"}, nil
	}

	func main() {
	    graph := agentlab.NewGraph().
	        AddNode("analyze", analyze).
	        AddEdge("analyze", agentlab.END).
	        SetEntry("analyze")

	    compiled, err := graph.Compile()
	    if err != nil {
	        log.Fatal(err)
	    }

	    ctx := agentlab.NewContext(context.Background())
	    result, err := compiled.Invoke(ctx, state.State{"topic": "memory"}, "thread-1")
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Println(result.String("analysis"))
	}

# Conditional Branching

Routing rules map predicate outcomes to declared targets:

	graph.AddConditionalEdges("validate",
	    func(ctx agentlab.Context, s state.State) (string, error) {
	        if s.Float("score") >= 0.8 {
	            return "pass", nil
	        }
	        return "retry", nil
	    },
	    map[string]string{
	        "pass":  agentlab.END,
	        "retry": "research",
	    })

Predicates receive a clone of the state and must not mutate it.

# Checkpointing and Resume

Configure a store to persist state after every node:

	store, _ := checkpoint.NewSQLiteStore("run.db")
	defer store.Close()

	result, err := compiled.Invoke(ctx, initial, "thread-1",
	    agentlab.WithCheckpointStore(store))

	// After a crash, continue where the thread left off.
	result, err = compiled.Resume(ctx, store, "thread-1")

# Experiments

The experiment subpackage runs background snapshot capture over a live
pipeline; the metric subpackage computes progress metrics from state;
the store subpackage persists experiment records.
*/
package agentlab
