package experiment

import (
	"log/slog"
	"time"

	"github.com/brandonyhc/agentlab/pkg/agentlab/compress"
	"github.com/brandonyhc/agentlab/pkg/agentlab/config"
	"github.com/brandonyhc/agentlab/pkg/agentlab/metric"
	"github.com/brandonyhc/agentlab/pkg/agentlab/observability"
)

// Defaults for runner options.
const (
	// DefaultMaxSnapshots bounds the snapshot history per experiment.
	DefaultMaxSnapshots = 100
)

// DefaultMetricKinds is the metric set computed when none is configured.
var DefaultMetricKinds = []metric.Kind{
	metric.KindMessageCount,
	metric.KindKnowledgeNodeCount,
	metric.KindKnowledgeEdgeCount,
	metric.KindIterationCount,
}

// Option configures a Runner.
type Option func(*Runner)

// WithSnapshotInterval enables the background snapshot loop. A zero or
// negative interval leaves the loop off; snapshots are then taken only
// via TakeSnapshot or RecordMetric.
func WithSnapshotInterval(d time.Duration) Option {
	return func(r *Runner) {
		r.interval = d
	}
}

// WithMaxSnapshots bounds the snapshot history. Once the cap is
// reached further captures are silent no-ops; nothing is evicted.
// Values below 1 are ignored.
func WithMaxSnapshots(n int) Option {
	return func(r *Runner) {
		if n >= 1 {
			r.maxSnapshots = n
		}
	}
}

// WithSnapshotOnMetric makes RecordMetric also capture a snapshot.
func WithSnapshotOnMetric() Option {
	return func(r *Runner) {
		r.snapshotOnMetric = true
	}
}

// WithCompression selects the codec applied to snapshot state. The
// compressed form replaces the raw state copy on the persisted record.
func WithCompression(kind compress.Kind) Option {
	return func(r *Runner) {
		r.compressionKind = kind
	}
}

// WithMetricKinds sets the metric set computed per snapshot.
func WithMetricKinds(kinds ...metric.Kind) Option {
	return func(r *Runner) {
		if len(kinds) > 0 {
			r.kinds = kinds
		}
	}
}

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetricsRecorder sets the OpenTelemetry recorder for snapshot
// instrumentation. Defaults to a no-op recorder.
func WithMetricsRecorder(recorder observability.MetricsRecorder) Option {
	return func(r *Runner) {
		if recorder != nil {
			r.recorder = recorder
		}
	}
}

// OptionsFromConfig derives runner options from a configuration
// section. Recognized keys:
//
//	snapshot_interval   duration string (e.g. "30s")
//	max_snapshots       int
//	snapshot_on_metric  bool
//	compression         "json" | "gzip"
//	metric_kinds        list of kind names
func OptionsFromConfig(cfg config.Config) []Option {
	var opts []Option
	if d := cfg.Duration("snapshot_interval", 0); d > 0 {
		opts = append(opts, WithSnapshotInterval(d))
	}
	if n := cfg.Int("max_snapshots", 0); n >= 1 {
		opts = append(opts, WithMaxSnapshots(n))
	}
	if cfg.Bool("snapshot_on_metric", false) {
		opts = append(opts, WithSnapshotOnMetric())
	}
	if kind := cfg.String("compression", ""); kind != "" {
		opts = append(opts, WithCompression(compress.Kind(kind)))
	}
	if names := cfg.StringSlice("metric_kinds", nil); len(names) > 0 {
		kinds := make([]metric.Kind, 0, len(names))
		for _, name := range names {
			kinds = append(kinds, metric.Kind(name))
		}
		opts = append(opts, WithMetricKinds(kinds...))
	}
	return opts
}
