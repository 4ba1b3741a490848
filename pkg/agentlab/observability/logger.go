// Package observability provides structured logging, metrics, and
// distributed tracing for agentlab: graph runs, node executions,
// checkpoints, and experiment snapshots.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds run context to a logger.
// Returns a new logger with thread_id and node_id fields.
func EnrichLogger(logger *slog.Logger, threadID, nodeID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("thread_id", threadID),
		slog.String("node_id", nodeID),
	)
}

// LogRunStart logs the start of a graph run.
func LogRunStart(logger *slog.Logger, threadID string) {
	if logger == nil {
		return
	}
	logger.Info("graph run starting",
		slog.String("thread_id", threadID),
	)
}

// LogRunComplete logs successful graph run completion.
func LogRunComplete(logger *slog.Logger, threadID string, durationMs float64, steps int) {
	if logger == nil {
		return
	}
	logger.Info("graph run completed",
		slog.String("thread_id", threadID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("steps", steps),
	)
}

// LogRunError logs graph run failure.
func LogRunError(logger *slog.Logger, threadID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("graph run failed",
		slog.String("thread_id", threadID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node execution error.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogCheckpoint logs checkpoint creation.
func LogCheckpoint(logger *slog.Logger, nodeID string, step, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint appended",
		slog.String("node_id", nodeID),
		slog.Int("step", step),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogCheckpointError logs checkpoint failure (non-fatal).
func LogCheckpointError(logger *slog.Logger, nodeID string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("checkpoint failed",
		slog.String("node_id", nodeID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogExperimentStart logs experiment creation.
func LogExperimentStart(logger *slog.Logger, experimentID, name string) {
	if logger == nil {
		return
	}
	logger.Info("experiment started",
		slog.String("experiment_id", experimentID),
		slog.String("name", name),
	)
}

// LogExperimentEnd logs experiment closure.
func LogExperimentEnd(logger *slog.Logger, experimentID, status string, snapshots int) {
	if logger == nil {
		return
	}
	logger.Info("experiment ended",
		slog.String("experiment_id", experimentID),
		slog.String("status", status),
		slog.Int("snapshots", snapshots),
	)
}

// LogSnapshot logs a successful snapshot capture.
func LogSnapshot(logger *slog.Logger, experimentID string, count int, compressed bool) {
	if logger == nil {
		return
	}
	logger.Debug("snapshot captured",
		slog.String("experiment_id", experimentID),
		slog.Int("snapshot_count", count),
		slog.Bool("compressed", compressed),
	)
}

// LogSnapshotSkipped logs a snapshot request refused at the retention cap.
func LogSnapshotSkipped(logger *slog.Logger, experimentID string, max int) {
	if logger == nil {
		return
	}
	logger.Debug("snapshot skipped, retention cap reached",
		slog.String("experiment_id", experimentID),
		slog.Int("max_snapshots", max),
	)
}

// LogSnapshotError logs a snapshot failure that was swallowed (non-fatal).
func LogSnapshotError(logger *slog.Logger, experimentID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("snapshot failed",
		slog.String("experiment_id", experimentID),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
