package agentlab

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/brandonyhc/agentlab/pkg/agentlab/checkpoint"
	"github.com/brandonyhc/agentlab/pkg/agentlab/observability"
	"github.com/brandonyhc/agentlab/pkg/agentlab/state"
)

// Invoke runs the graph from its entry point until a node routes to END
// or the recursion limit is hit. The initial state is cloned before
// execution, so the caller's map is never mutated.
//
// threadID keys checkpoints and identifies the run in logs. It is
// required when a checkpoint store is configured; otherwise it may be
// empty and the Context's thread ID is used.
//
// On failure the state accumulated so far is returned alongside the
// error, and any checkpoints already appended remain valid.
func (cg *CompiledGraph) Invoke(ctx Context, initial state.State, threadID string, opts ...RunOption) (state.State, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	cfg := newRunConfig(opts)
	return cg.run(ctx, initial, threadID, cg.entryPoint, cfg)
}

// run is the executor loop shared by Invoke and Resume.
func (cg *CompiledGraph) run(ctx Context, initial state.State, threadID, startNode string, cfg *runConfig) (state.State, error) {
	if cfg.store != nil && threadID == "" {
		return nil, ErrThreadIDRequired
	}
	if threadID == "" {
		threadID = ctx.ThreadID()
	}
	logger := cfg.logger
	if logger == nil {
		logger = ctx.Logger()
	}

	st := initial.Clone()
	if st == nil {
		st = state.New()
	}

	runCtx, runSpan := cfg.spans.StartRunSpan(ctx, cg.entryPoint, threadID)
	observability.LogRunStart(logger, threadID)
	runStart := time.Now()

	fail := func(current string, err error) (state.State, error) {
		observability.LogRunError(logger, threadID, err, durationMs(runStart), current)
		cfg.metrics.RecordGraphRun(runCtx, false, time.Since(runStart))
		cfg.spans.EndSpanWithError(runSpan, err)
		return st, err
	}

	current := startNode
	step := cfg.startStep
	executed := 0
	prev := ""

	for current != END {
		// The budget is checked before executing, so a limit of N
		// permits exactly N node executions.
		if executed >= cfg.recursionLimit {
			return fail(current, &RecursionLimitError{
				Limit:      cfg.recursionLimit,
				LastNodeID: current,
				State:      st,
			})
		}

		fn, ok := cg.getNode(current)
		if !ok {
			return fail(current, fmt.Errorf("%w: %s", ErrNodeNotFound, current))
		}

		step++
		nodeSpanCtx, nodeSpan := cfg.spans.StartNodeSpan(runCtx, current)
		nodeCtx := &executionContext{
			Context:      nodeSpanCtx,
			logger:       observability.EnrichLogger(logger, threadID, current),
			llmClient:    ctx.LLM(),
			checkpointer: ctx.Checkpointer(),
			threadID:     threadID,
			nodeID:       current,
			step:         step,
		}

		observability.LogNodeStart(nodeCtx.logger, current)
		nodeStart := time.Now()
		update, err := runNode(nodeCtx, fn, current, st)
		nodeElapsed := time.Since(nodeStart)

		cfg.metrics.RecordNodeExecution(runCtx, current, nodeElapsed, err)
		cfg.spans.EndSpanWithError(nodeSpan, err)
		if err != nil {
			observability.LogNodeError(nodeCtx.logger, current, err)
			return fail(current, err)
		}
		observability.LogNodeComplete(nodeCtx.logger, current, durationMs(nodeStart))

		st = st.Apply(update)
		executed++

		next, err := cg.route(nodeCtx, current, st)
		if err != nil {
			// The node itself succeeded, so its state is still
			// checkpointed. The record carries no next node: Resume
			// returns the restored state rather than re-routing.
			if cfg.store != nil {
				if cpErr := cg.writeCheckpoint(runCtx, cfg, logger, threadID, current, prev, step, st, ""); cpErr != nil {
					observability.LogCheckpointError(logger, current, "append", cpErr)
				}
			}
			return fail(current, err)
		}

		if cfg.store != nil {
			if cpErr := cg.writeCheckpoint(runCtx, cfg, logger, threadID, current, prev, step, st, next); cpErr != nil {
				return fail(current, cpErr)
			}
		}

		prev = current
		current = next
	}

	observability.LogRunComplete(logger, threadID, durationMs(runStart), executed)
	cfg.metrics.RecordGraphRun(runCtx, true, time.Since(runStart))
	cfg.spans.EndSpanWithError(runSpan, nil)
	return st, nil
}

// runNode executes a node with panic recovery. Returned errors are
// already wrapped as NodeError or PanicError.
func runNode(ctx Context, fn NodeFunc, nodeID string, s state.State) (update state.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			update = nil
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	update, err = fn(ctx, s)
	if err != nil {
		return nil, &NodeError{NodeID: nodeID, Op: "execute", Err: err}
	}
	return update, nil
}

// route determines the node to execute after from. Routing rules take
// precedence over unconditional edges (Compile rejects having both);
// a node with neither is terminal and routes to END.
//
// The predicate receives a clone of the state: routing decisions must
// not mutate pipeline state.
func (cg *CompiledGraph) route(ctx Context, from string, s state.State) (string, error) {
	if rule, ok := cg.getRule(from); ok {
		outcome, err := runPredicate(ctx, rule.predicate, from, s.Clone())
		if err != nil {
			return "", err
		}
		target, ok := rule.outcomes[outcome]
		if !ok {
			return "", &RouteError{FromNode: from, Outcome: outcome, Err: ErrUnroutableState}
		}
		return target, nil
	}
	if to, ok := cg.getEdge(from); ok {
		return to, nil
	}
	return END, nil
}

// runPredicate evaluates a routing predicate with panic recovery.
func runPredicate(ctx Context, predicate Predicate, from string, s state.State) (outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = ""
			err = &RouteError{
				FromNode: from,
				Err: &PanicError{
					NodeID: from,
					Value:  r,
					Stack:  string(debug.Stack()),
				},
			}
		}
	}()

	outcome, err = predicate(ctx, s)
	if err != nil {
		return "", &RouteError{FromNode: from, Err: err}
	}
	return outcome, nil
}

// writeCheckpoint serializes state and appends it to the store.
// Append failures are logged and swallowed unless the run was
// configured with WithCheckpointFailureFatal.
func (cg *CompiledGraph) writeCheckpoint(ctx context.Context, cfg *runConfig, logger *slog.Logger, threadID, nodeID, prevNodeID string, step int, st state.State, nextNode string) error {
	stateBytes, err := st.Marshal()
	if err != nil {
		return cg.checkpointFailure(cfg, logger, nodeID, "marshal state", err)
	}

	cp := checkpoint.New(threadID, nodeID, step, stateBytes, nextNode)
	if prevNodeID != "" {
		cp.WithPrevNode(prevNodeID)
	}
	data, err := cp.Marshal()
	if err != nil {
		return cg.checkpointFailure(cfg, logger, nodeID, "marshal checkpoint", err)
	}

	if err := cfg.store.Append(threadID, step, data); err != nil {
		return cg.checkpointFailure(cfg, logger, nodeID, "append", err)
	}

	observability.LogCheckpoint(logger, nodeID, step, len(data))
	cfg.metrics.RecordCheckpoint(ctx, nodeID, int64(len(data)))
	return nil
}

func (cg *CompiledGraph) checkpointFailure(cfg *runConfig, logger *slog.Logger, nodeID, op string, err error) error {
	cpErr := &CheckpointError{NodeID: nodeID, Op: op, Err: err}
	if cfg.checkpointFatal {
		return cpErr
	}
	observability.LogCheckpointError(logger, nodeID, op, err)
	return nil
}

func durationMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// ListCheckpoints returns the checkpoint history of a thread, ordered
// by step. The result is metadata only; use Resume to reload state.
func ListCheckpoints(store checkpoint.Store, threadID string) ([]checkpoint.Info, error) {
	if store == nil {
		return nil, fmt.Errorf("checkpoint store is nil")
	}
	return store.List(threadID)
}
