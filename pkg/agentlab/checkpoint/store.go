// Package checkpoint provides the append-only checkpoint log a workflow
// run writes after every node execution, and the stores that persist it.
package checkpoint

import (
	"errors"
	"time"
)

// Store persists checkpoints for run history and resume.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append stores a checkpoint for (threadID, step).
	// Returns ErrDuplicateStep if that step was already written:
	// the log is append-only, never rewritten.
	Append(threadID string, step int, data []byte) error

	// Load retrieves the checkpoint at a specific step.
	// Returns ErrNotFound if it doesn't exist.
	Load(threadID string, step int) ([]byte, error)

	// Latest retrieves the checkpoint with the highest step for a thread.
	// Returns ErrNotFound if the thread has no checkpoints.
	Latest(threadID string) ([]byte, error)

	// List returns metadata for all checkpoints of a thread, ordered by
	// step. Returns an empty slice (not an error) for an unknown thread.
	List(threadID string) ([]Info, error)

	// DeleteThread removes all checkpoints for a thread.
	// Returns nil if the thread has none.
	DeleteThread(threadID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides checkpoint metadata without loading full state.
type Info struct {
	ThreadID  string
	NodeID    string
	Step      int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrDuplicateStep indicates an append targeted an existing step.
	ErrDuplicateStep = errors.New("checkpoint step already written")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
