package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brandonyhc/agentlab/pkg/agentlab/compress"
	"github.com/brandonyhc/agentlab/pkg/agentlab/metric"
	"github.com/brandonyhc/agentlab/pkg/agentlab/observability"
	"github.com/brandonyhc/agentlab/pkg/agentlab/pipeline"
	"github.com/brandonyhc/agentlab/pkg/agentlab/state"
	"github.com/brandonyhc/agentlab/pkg/agentlab/store"
)

// Sentinel errors for runner state.
var (
	// ErrExperimentInProgress indicates Start was called while an
	// experiment is already open on this runner.
	ErrExperimentInProgress = errors.New("experiment already in progress")

	// ErrNoExperiment indicates an operation that needs an open
	// experiment was called with nothing open.
	ErrNoExperiment = errors.New("no experiment in progress")
)

// Runner wraps a pipeline with a telemetry session: it opens and
// closes experiment records, captures bounded state snapshots on a
// timer or on demand, computes metrics, and persists everything
// incrementally through a store client.
//
// Exactly one experiment may be open per runner at a time. Start,
// TakeSnapshot, RecordMetric and End are safe to call while the
// background loop runs, but the design assumes a single foreground
// caller drives them.
//
// Snapshotting never blocks pipeline execution: the runner only ever
// reads through the pipeline's copy-safe GetCurrentState.
type Runner struct {
	pipeline pipeline.Pipeline
	client   store.Client

	interval         time.Duration
	maxSnapshots     int
	snapshotOnMetric bool
	compressionKind  compress.Kind
	compressor       compress.Compressor
	kinds            []metric.Kind
	logger           *slog.Logger
	recorder         observability.MetricsRecorder

	mu      sync.Mutex
	current *Record
	stop    chan struct{}
	done    chan struct{}
}

// NewRunner creates a runner bound to a pipeline and a store client.
// Fails if the configured compression kind is unknown.
func NewRunner(p pipeline.Pipeline, client store.Client, opts ...Option) (*Runner, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline is nil")
	}
	if client == nil {
		return nil, fmt.Errorf("store client is nil")
	}

	r := &Runner{
		pipeline:     p,
		client:       client,
		maxSnapshots: DefaultMaxSnapshots,
		kinds:        DefaultMetricKinds,
		logger:       slog.Default(),
		recorder:     observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.compressionKind != "" {
		codec, err := compress.ForKind(r.compressionKind)
		if err != nil {
			return nil, err
		}
		r.compressor = codec
	}
	return r, nil
}

// Start opens an experiment: creates the record with status running,
// records a zeroth metrics pass, persists it, and starts the background
// snapshot loop if an interval is configured.
//
// Returns ErrExperimentInProgress if an experiment is already open.
func (r *Runner) Start(ctx context.Context, name string, initialInput state.State) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		return nil, ErrExperimentInProgress
	}

	cfg := r.pipeline.GetConfig()
	pipelineType, _ := cfg["pipeline_type"].(string)

	rec := &Record{
		ID:             uuid.NewString(),
		Name:           name,
		StartTime:      time.Now().UTC(),
		PipelineType:   pipelineType,
		PipelineConfig: cfg,
		InitialInput:   initialInput.Clone(),
		Status:         StatusRunning,
		Metrics:        metric.Compute(r.kinds, r.pipeline.GetCurrentState()),
		Snapshots:      []Snapshot{},
	}

	if err := r.persist(ctx, rec); err != nil {
		return nil, err
	}
	r.current = rec

	if r.interval > 0 {
		r.stop = make(chan struct{})
		r.done = make(chan struct{})
		go r.loop(ctx, r.stop, r.done, r.interval)
	}

	observability.LogExperimentStart(r.logger, rec.ID, name)
	return rec.clone(), nil
}

// TakeSnapshot captures the pipeline's current state, computes the
// configured metrics, and persists the updated record. At the snapshot
// cap the call is a deliberate no-op, not an error.
//
// Returns ErrNoExperiment if nothing is open.
func (r *Runner) TakeSnapshot(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.takeSnapshotLocked(ctx)
}

// takeSnapshotLocked is the capture path; r.mu must be held.
func (r *Runner) takeSnapshotLocked(ctx context.Context) error {
	rec := r.current
	if rec == nil {
		return ErrNoExperiment
	}

	if len(rec.Snapshots) >= r.maxSnapshots {
		observability.LogSnapshotSkipped(r.logger, rec.ID, r.maxSnapshots)
		return nil
	}

	st := r.pipeline.GetCurrentState()
	values := metric.Compute(r.kinds, st)

	snap := Snapshot{
		Timestamp: time.Now().UTC(),
		Metrics:   values,
	}
	if r.compressor != nil {
		data, err := r.compressor.Compress(st)
		if err != nil {
			return fmt.Errorf("compressing snapshot: %w", err)
		}
		snap.CompressedData = data
		snap.CompressionType = r.compressionKind
	} else {
		snap.State = st
	}

	rec.Snapshots = append(rec.Snapshots, snap)
	for _, v := range values {
		rec.Metrics = upsertMetric(rec.Metrics, v)
	}

	if err := r.persist(ctx, rec); err != nil {
		// Roll the append back so a later retry isn't double-counted
		// against the cap.
		rec.Snapshots = rec.Snapshots[:len(rec.Snapshots)-1]
		return err
	}

	size := int64(len(snap.CompressedData))
	if snap.CompressedData == nil {
		if data, err := st.Marshal(); err == nil {
			size = int64(len(data))
		}
	}
	observability.LogSnapshot(r.logger, rec.ID, len(rec.Snapshots), r.compressor != nil)
	r.recorder.RecordSnapshot(ctx, rec.ID, r.compressor != nil, size)
	return nil
}

// RecordMetric injects a manual metric value on the open experiment:
// it overwrites the value under the same name or appends a new one,
// then persists. With snapshot-on-metric configured it also captures a
// snapshot.
//
// Returns ErrNoExperiment if nothing is open.
func (r *Runner) RecordMetric(ctx context.Context, name string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.current
	if rec == nil {
		return ErrNoExperiment
	}

	entry := metric.Value{
		Name:        name,
		Description: "manually recorded",
		Value:       value,
		Timestamp:   time.Now().UTC(),
	}
	rec.Metrics = upsertMetric(rec.Metrics, entry)

	if err := r.persist(ctx, rec); err != nil {
		return err
	}

	if r.snapshotOnMetric {
		return r.takeSnapshotLocked(ctx)
	}
	return nil
}

// End closes the open experiment: stops the background loop (signal
// then join, so the loop never outlives this call), performs a final
// metrics pass and a best-effort final snapshot, persists the final
// status and end time, clears the slot, and returns the closed record.
//
// An empty status closes as StatusCompleted. The final snapshot may
// fail internally; that failure is logged and swallowed so the
// experiment always closes.
func (r *Runner) End(ctx context.Context, status Status) (*Record, error) {
	r.mu.Lock()
	if r.current == nil {
		r.mu.Unlock()
		return nil, ErrNoExperiment
	}
	stop, done := r.stop, r.done
	r.stop, r.done = nil, nil
	r.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.current
	for _, v := range metric.Compute(r.kinds, r.pipeline.GetCurrentState()) {
		rec.Metrics = upsertMetric(rec.Metrics, v)
	}

	if err := r.takeSnapshotLocked(ctx); err != nil {
		observability.LogSnapshotError(r.logger, rec.ID, err)
	}

	if status == "" {
		status = StatusCompleted
	}
	now := time.Now().UTC()
	rec.Status = status
	rec.EndTime = &now

	err := r.persist(ctx, rec)

	r.current = nil
	observability.LogExperimentEnd(r.logger, rec.ID, string(rec.Status), len(rec.Snapshots))
	return rec.clone(), err
}

// CurrentExperiment returns a copy of the open experiment record, or
// nil if nothing is open.
func (r *Runner) CurrentExperiment() *Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	return r.current.clone()
}

// upsertMetric replaces the value recorded under the same name or
// appends a new one. Computed and manual metrics share one namespace,
// so a snapshot's metrics pass refreshes computed values without
// discarding values injected via RecordMetric.
func upsertMetric(metrics []metric.Value, entry metric.Value) []metric.Value {
	for i := range metrics {
		if metrics[i].Name == entry.Name {
			metrics[i] = entry
			return metrics
		}
	}
	return append(metrics, entry)
}

// persist upserts the record, keyed by experiment id. Upserts are
// idempotent per id, so repeated partial persists never corrupt the
// stored record.
func (r *Runner) persist(ctx context.Context, rec *Record) error {
	doc, err := rec.toDocument()
	if err != nil {
		return err
	}
	if _, err := r.client.Upsert(ctx, rec.ID, doc); err != nil {
		return fmt.Errorf("persisting experiment %s: %w", rec.ID, err)
	}
	return nil
}

// loop is the background snapshot worker: one goroutine per open
// experiment, started by Start only when an interval is configured.
// Errors inside an iteration are logged and swallowed; the loop only
// exits on the stop signal.
func (r *Runner) loop(ctx context.Context, stop, done chan struct{}, interval time.Duration) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Re-check the stop signal before each attempt; End may
			// have fired between the tick and this iteration.
			select {
			case <-stop:
				return
			default:
			}
			if err := r.TakeSnapshot(ctx); err != nil {
				experimentID := ""
				if rec := r.CurrentExperiment(); rec != nil {
					experimentID = rec.ID
				}
				observability.LogSnapshotError(r.logger, experimentID, err)
			}
		}
	}
}
