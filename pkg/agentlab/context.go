package agentlab

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/brandonyhc/agentlab/pkg/agentlab/checkpoint"
	"github.com/brandonyhc/agentlab/pkg/agentlab/llm"
)

// Context provides execution context to nodes and routing predicates.
// It extends context.Context with engine services and run metadata.
//
// Context is immutable after creation. The executor creates derived
// contexts for each node with updated NodeID/Step and enriched logger.
type Context interface {
	context.Context

	// Services

	// Logger returns the configured logger, enriched with thread and
	// node context. Never returns nil - defaults to slog.Default() if
	// not configured.
	Logger() *slog.Logger

	// LLM returns the language model client, or nil if not configured.
	// Nodes should check for nil before using.
	LLM() llm.Client

	// Checkpointer returns the checkpoint store, or nil if not configured.
	Checkpointer() checkpoint.Store

	// Metadata

	// ThreadID returns the conversation/thread identifier for this run.
	// Auto-generated if not configured.
	ThreadID() string

	// NodeID returns the current node being executed.
	// Empty string before execution starts.
	NodeID() string

	// Step returns the step index of the current node execution
	// (1-based). Zero before execution starts.
	Step() int
}

// executionContext is the internal implementation of Context.
type executionContext struct {
	context.Context

	logger       *slog.Logger
	llmClient    llm.Client
	checkpointer checkpoint.Store
	threadID     string
	nodeID       string
	step         int
}

// Logger returns the configured logger.
func (c *executionContext) Logger() *slog.Logger {
	return c.logger
}

// LLM returns the language model client.
func (c *executionContext) LLM() llm.Client {
	return c.llmClient
}

// Checkpointer returns the checkpoint store.
func (c *executionContext) Checkpointer() checkpoint.Store {
	return c.checkpointer
}

// ThreadID returns the thread identifier.
func (c *executionContext) ThreadID() string {
	return c.threadID
}

// NodeID returns the current node identifier.
func (c *executionContext) NodeID() string {
	return c.nodeID
}

// Step returns the current step index.
func (c *executionContext) Step() int {
	return c.step
}

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger is enriched with thread_id and node_id during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		c.logger = logger
	}
}

// WithLLM sets the language model client for the context.
func WithLLM(client llm.Client) ContextOption {
	return func(c *executionContext) {
		c.llmClient = client
	}
}

// WithCheckpointer sets the checkpoint store for the context.
// This makes the store available to nodes; checkpointing of the run
// itself is configured with the WithCheckpointStore run option.
func WithCheckpointer(store checkpoint.Store) ContextOption {
	return func(c *executionContext) {
		c.checkpointer = store
	}
}

// WithContextThreadID sets the thread identifier for the context.
// If not set, a UUID is auto-generated. This is the logging/tracing
// identity; Invoke's threadID argument governs checkpoint keys.
func WithContextThreadID(id string) ContextOption {
	return func(c *executionContext) {
		c.threadID = id
	}
}

// NewContext creates an execution Context from a parent context.Context.
func NewContext(parent context.Context, opts ...ContextOption) Context {
	if parent == nil {
		parent = context.Background()
	}

	ec := &executionContext{
		Context: parent,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(ec)
	}
	if ec.threadID == "" {
		ec.threadID = uuid.NewString()
	}
	if ec.logger == nil {
		ec.logger = slog.Default()
	}
	return ec
}
