package agentlab

import (
	"errors"
	"fmt"

	"github.com/brandonyhc/agentlab/pkg/agentlab/checkpoint"
	"github.com/brandonyhc/agentlab/pkg/agentlab/state"
)

// Resume continues a thread from its latest checkpoint. State is
// restored from the checkpoint and execution picks up at the node the
// checkpoint recorded as next. New checkpoints are appended to the
// same store, continuing the thread's step sequence.
//
// If the latest checkpoint routed to END the run is already complete
// and the restored state is returned without executing anything.
//
// The graph passed to Resume must still contain the recorded next
// node; resuming against a reshaped graph fails with ErrNodeNotFound.
func (cg *CompiledGraph) Resume(ctx Context, store checkpoint.Store, threadID string, opts ...RunOption) (state.State, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if store == nil {
		return nil, fmt.Errorf("checkpoint store is nil")
	}
	if threadID == "" {
		return nil, ErrThreadIDRequired
	}

	data, err := store.Latest(threadID)
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoCheckpoints, threadID)
		}
		return nil, fmt.Errorf("loading latest checkpoint for %s: %w", threadID, err)
	}

	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}
	if cp.Version != checkpoint.Version {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}

	st, err := state.Unmarshal(cp.State)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	if cp.NextNode == END || cp.NextNode == "" {
		return st, nil
	}
	if !cg.HasNode(cp.NextNode) {
		return nil, fmt.Errorf("%w: checkpoint next node %s", ErrNodeNotFound, cp.NextNode)
	}

	opts = append(opts, WithCheckpointStore(store), withStartStep(cp.Step))
	cfg := newRunConfig(opts)
	return cg.run(ctx, st, threadID, cp.NextNode, cfg)
}
