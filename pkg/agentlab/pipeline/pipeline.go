// Package pipeline defines the contract the experiment runner observes
// and a reference learning pipeline built on the workflow engine.
package pipeline

import (
	"context"

	"github.com/brandonyhc/agentlab/pkg/agentlab/state"
)

// Pipeline is the surface the experiment runner consumes. The runner
// snapshots a pipeline while Run may still be mutating state on
// another goroutine, so GetCurrentState carries the concurrency
// contract of the whole system.
type Pipeline interface {
	// Run executes the pipeline to completion for the initial input
	// and returns the final state.
	Run(ctx context.Context, initialInput state.State) (state.State, error)

	// GetCurrentState returns a copy-safe view of the live state: a
	// full copy, never a live mutable reference. It must not block a
	// concurrent Run; snapshotting is observational, not transactional.
	GetCurrentState() state.State

	// GetConfig returns the pipeline's configuration. It is persisted
	// verbatim on experiment records.
	GetConfig() map[string]any
}
