package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest creates a test meter provider and returns a function to collect metrics.
func setupMetricsTest(t *testing.T) (*sdkmetric.ManualReader, func()) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	originalProvider := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)

	cleanup := func() {
		otel.SetMeterProvider(originalProvider)
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	}

	return reader, cleanup
}

// collectMetrics collects all metrics from the reader.
func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)
	return &rm
}

// findMetric finds a metric by name in the collected data.
func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetricsRecorder(t *testing.T) {
	_, cleanup := setupMetricsTest(t)
	defer cleanup()

	recorder := NewMetricsRecorder()
	require.NotNil(t, recorder)
}

func TestRecordNodeExecution(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("records execution count and latency", func(t *testing.T) {
		m.RecordNodeExecution(ctx, "analyze", 50*time.Millisecond, nil)

		rm := collectMetrics(t, reader)

		execs := findMetric(rm, "agentlab.node.executions")
		require.NotNil(t, execs)
		sum, ok := execs.Data.(metricdata.Sum[int64])
		require.True(t, ok, "Expected Sum type")
		require.NotEmpty(t, sum.DataPoints)
		assert.Equal(t, int64(1), sum.DataPoints[0].Value)

		latency := findMetric(rm, "agentlab.node.latency_ms")
		require.NotNil(t, latency)
	})

	t.Run("records errors separately", func(t *testing.T) {
		m.RecordNodeExecution(ctx, "analyze", time.Millisecond, errors.New("boom"))

		rm := collectMetrics(t, reader)
		errMetric := findMetric(rm, "agentlab.node.errors")
		require.NotNil(t, errMetric)
		sum, ok := errMetric.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		require.NotEmpty(t, sum.DataPoints)
		assert.Equal(t, int64(1), sum.DataPoints[0].Value)
	})
}

func TestRecordGraphRun(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordGraphRun(context.Background(), true, 120*time.Millisecond)

	rm := collectMetrics(t, reader)
	runs := findMetric(rm, "agentlab.graph.runs")
	require.NotNil(t, runs)
	sum, ok := runs.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.NotEmpty(t, sum.DataPoints)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
}

func TestRecordSnapshot(t *testing.T) {
	reader, cleanup := setupMetricsTest(t)
	defer cleanup()

	m, err := newOtelMetrics()
	require.NoError(t, err)

	m.RecordSnapshot(context.Background(), "exp-1", true, 512)

	rm := collectMetrics(t, reader)

	snaps := findMetric(rm, "agentlab.experiment.snapshots")
	require.NotNil(t, snaps)
	sum, ok := snaps.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.NotEmpty(t, sum.DataPoints)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)

	size := findMetric(rm, "agentlab.experiment.snapshot_size_bytes")
	require.NotNil(t, size)
	hist, ok := size.Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	require.NotEmpty(t, hist.DataPoints)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestNoopMetrics(t *testing.T) {
	// Must be callable without any provider configured.
	m := NoopMetrics{}
	ctx := context.Background()
	m.RecordNodeExecution(ctx, "n", time.Millisecond, nil)
	m.RecordGraphRun(ctx, false, time.Millisecond)
	m.RecordCheckpoint(ctx, "n", 10)
	m.RecordSnapshot(ctx, "e", false, 10)
}
