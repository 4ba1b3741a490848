package agentlab

import (
	"log/slog"

	"github.com/brandonyhc/agentlab/pkg/agentlab/checkpoint"
	"github.com/brandonyhc/agentlab/pkg/agentlab/config"
	"github.com/brandonyhc/agentlab/pkg/agentlab/observability"
)

// DefaultRecursionLimit bounds how many node executions a single run
// may perform before it is aborted with a RecursionLimitError.
const DefaultRecursionLimit = 25

// runConfig holds per-invocation settings assembled from RunOptions.
type runConfig struct {
	recursionLimit  int
	store           checkpoint.Store
	checkpointFatal bool
	logger          *slog.Logger
	metrics         observability.MetricsRecorder
	spans           observability.SpanManager
	startStep       int
}

func newRunConfig(opts []RunOption) *runConfig {
	cfg := &runConfig{
		recursionLimit: DefaultRecursionLimit,
		metrics:        observability.NoopMetrics{},
		spans:          observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// RunOption configures a single Invoke or Resume call.
type RunOption func(*runConfig)

// WithRecursionLimit overrides the default limit on node executions
// per run. Values below 1 are ignored.
func WithRecursionLimit(limit int) RunOption {
	return func(cfg *runConfig) {
		if limit >= 1 {
			cfg.recursionLimit = limit
		}
	}
}

// WithCheckpointStore enables checkpointing. After every node
// execution the resulting state is appended to the store, keyed by
// the run's thread ID and step index.
func WithCheckpointStore(store checkpoint.Store) RunOption {
	return func(cfg *runConfig) {
		cfg.store = store
	}
}

// WithCheckpointFailureFatal makes checkpoint append errors abort the
// run. By default append failures are logged and execution continues.
func WithCheckpointFailureFatal() RunOption {
	return func(cfg *runConfig) {
		cfg.checkpointFatal = true
	}
}

// WithRunLogger sets the logger used for run-level events. Node-level
// logging uses the Context's logger.
func WithRunLogger(logger *slog.Logger) RunOption {
	return func(cfg *runConfig) {
		cfg.logger = logger
	}
}

// WithMetrics sets the metrics recorder for the run. Defaults to a
// no-op recorder.
func WithMetrics(recorder observability.MetricsRecorder) RunOption {
	return func(cfg *runConfig) {
		if recorder != nil {
			cfg.metrics = recorder
		}
	}
}

// WithTracing enables OpenTelemetry spans for the run and each node
// execution, using the globally registered tracer provider.
func WithTracing() RunOption {
	return func(cfg *runConfig) {
		cfg.spans = observability.NewSpanManager()
	}
}

// WithSpanManager sets an explicit span manager for the run.
func WithSpanManager(spans observability.SpanManager) RunOption {
	return func(cfg *runConfig) {
		if spans != nil {
			cfg.spans = spans
		}
	}
}

// withStartStep offsets the checkpoint step counter. Used by Resume so
// continued runs keep appending after the last persisted step.
func withStartStep(step int) RunOption {
	return func(cfg *runConfig) {
		if step > 0 {
			cfg.startStep = step
		}
	}
}

// RunOptionsFromConfig derives run options from a configuration
// section. Recognized keys:
//
//	recursion_limit        int
//	checkpoint_fatal       bool
//	tracing                bool
//	metrics                bool
func RunOptionsFromConfig(cfg config.Config) []RunOption {
	var opts []RunOption
	if limit := cfg.Int("recursion_limit", 0); limit >= 1 {
		opts = append(opts, WithRecursionLimit(limit))
	}
	if cfg.Bool("checkpoint_fatal", false) {
		opts = append(opts, WithCheckpointFailureFatal())
	}
	if cfg.Bool("tracing", false) {
		opts = append(opts, WithTracing())
	}
	if cfg.Bool("metrics", false) {
		opts = append(opts, WithMetrics(observability.NewMetricsRecorder()))
	}
	return opts
}
