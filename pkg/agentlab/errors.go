// Package agentlab provides a graph-based workflow engine for
// multi-step reasoning pipelines: named nodes mutate a shared state
// record, routing rules pick the next node, and every step is
// checkpointed for history and resume.
package agentlab

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoEntryPoint indicates SetEntry() was not called before Compile().
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrEntryNotFound indicates the entry point references a non-existent node.
	ErrEntryNotFound = errors.New("entry point node not found")

	// ErrNodeNotFound indicates an edge or routing rule references a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode indicates two nodes were registered under one name.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrUnreachableNode indicates a node with no path from the entry point.
	ErrUnreachableNode = errors.New("node unreachable from entry")

	// ErrConflictingRoute indicates a node has both an unconditional edge
	// and a routing rule.
	ErrConflictingRoute = errors.New("node has both edge and routing rule")
)

// Sentinel errors for execution.
var (
	// ErrRecursionLimit indicates a run exceeded its step budget.
	ErrRecursionLimit = errors.New("recursion limit exceeded")

	// ErrNilContext indicates Invoke() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrUnroutableState indicates a routing predicate produced an outcome
	// with no mapped target, or failed outright.
	ErrUnroutableState = errors.New("unroutable state")
)

// Sentinel errors for checkpointing and resume.
var (
	// ErrThreadIDRequired indicates checkpointing was enabled without a thread ID.
	ErrThreadIDRequired = errors.New("thread ID required for checkpointing")

	// ErrDeserializeState indicates checkpointed state could not be decoded.
	ErrDeserializeState = errors.New("failed to deserialize state")

	// ErrNoCheckpoints indicates no checkpoints exist for the thread.
	ErrNoCheckpoints = errors.New("no checkpoints found for thread")

	// ErrCheckpointVersionMismatch indicates the checkpoint version is incompatible.
	ErrCheckpointVersionMismatch = errors.New("checkpoint version mismatch")
)

// ValidationError aggregates every violation Compile() found, not just
// the first. Unwrap exposes the individual issues for errors.Is checks.
type ValidationError struct {
	Issues []error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.Error()
	}
	return fmt.Sprintf("graph validation failed: %s", strings.Join(msgs, "; "))
}

// Unwrap returns the individual violations for errors.Is/As support.
func (e *ValidationError) Unwrap() []error {
	return e.Issues
}

// NodeError wraps an error with node context.
type NodeError struct {
	// NodeID is the identifier of the node that failed.
	NodeID string
	// Op is the operation that failed (e.g., "execute").
	Op string
	// Err is the underlying error from the node.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// PanicError captures panic information from node execution.
type PanicError struct {
	// NodeID is the identifier of the node that panicked.
	NodeID string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// RouteError reports a routing failure: the predicate returned an
// outcome absent from its map, or the predicate itself failed. Both are
// treated identically as unroutable state; the run aborts but prior
// checkpoints remain valid.
type RouteError struct {
	// FromNode is the node whose routing rule failed.
	FromNode string
	// Outcome is the label the predicate returned, if any.
	Outcome string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *RouteError) Error() string {
	if e.Outcome != "" {
		return fmt.Sprintf("routing from %s: outcome %q: %v", e.FromNode, e.Outcome, e.Err)
	}
	return fmt.Sprintf("routing from %s: %v", e.FromNode, e.Err)
}

// Unwrap returns ErrUnroutableState (or the wrapped cause chain).
func (e *RouteError) Unwrap() error {
	return e.Err
}

// RecursionLimitError reports a run that exhausted its step budget.
// It is recoverable: checkpoints written up to that point remain valid
// and queryable, and the caller may resume or abort.
type RecursionLimitError struct {
	// Limit is the configured step budget.
	Limit int
	// LastNodeID is the node that would have executed next.
	LastNodeID string
	// State is the state at termination.
	State any
}

// Error implements the error interface.
func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("recursion limit (%d) exceeded at node %s", e.Limit, e.LastNodeID)
}

// Unwrap returns ErrRecursionLimit for errors.Is support.
func (e *RecursionLimitError) Unwrap() error {
	return ErrRecursionLimit
}

// CheckpointError wraps errors from checkpoint operations.
type CheckpointError struct {
	// NodeID is the node where checkpointing failed.
	NodeID string
	// Op is the operation that failed ("append", "serialize", "marshal").
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s at node %s: %v", e.Op, e.NodeID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}
