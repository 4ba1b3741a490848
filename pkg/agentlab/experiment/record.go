// Package experiment implements the telemetry session around a running
// pipeline: experiment records, bounded snapshot capture on a timer or
// on demand, metric computation, and incremental persistence.
package experiment

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/brandonyhc/agentlab/pkg/agentlab/compress"
	"github.com/brandonyhc/agentlab/pkg/agentlab/metric"
	"github.com/brandonyhc/agentlab/pkg/agentlab/state"
	"github.com/brandonyhc/agentlab/pkg/agentlab/store"
)

// Status of an experiment record.
type Status string

// Experiment lifecycle states.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Snapshot is a timestamped capture of pipeline state plus the metrics
// computed for it. State and CompressedData are mutually exclusive:
// compression, when configured, supersedes the raw copy.
type Snapshot struct {
	Timestamp       time.Time      `json:"timestamp"`
	State           state.State    `json:"state,omitempty"`
	CompressedData  []byte         `json:"compressed_data,omitempty"`
	CompressionType compress.Kind  `json:"compression_type,omitempty"`
	Metrics         []metric.Value `json:"metrics"`
}

// DecodeState returns the captured state, decompressing when needed.
func (s *Snapshot) DecodeState() (state.State, error) {
	if s.CompressedData == nil {
		return s.State.Clone(), nil
	}
	codec, err := compress.ForKind(s.CompressionType)
	if err != nil {
		return nil, err
	}
	return codec.Decompress(s.CompressedData)
}

// Record is the top-level telemetry entity for one experiment session.
// Created by Start, mutated by TakeSnapshot and RecordMetric, finalized
// by End. Metrics holds the latest computed values; Snapshots is the
// ordered, bounded capture history.
type Record struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        *time.Time     `json:"end_time,omitempty"`
	PipelineType   string         `json:"pipeline_type"`
	PipelineConfig map[string]any `json:"pipeline_config,omitempty"`
	InitialInput   state.State    `json:"initial_input,omitempty"`
	Status         Status         `json:"status"`
	Metrics        []metric.Value `json:"metrics"`
	Snapshots      []Snapshot     `json:"snapshots"`
}

// toDocument converts the record to the generic map form the store
// client persists.
func (r *Record) toDocument() (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding experiment record: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("encoding experiment record: %w", err)
	}
	return doc, nil
}

// recordFromDocument reconstructs a record from its stored map form.
func recordFromDocument(doc map[string]any) (*Record, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decoding experiment record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding experiment record: %w", err)
	}
	return &rec, nil
}

// clone returns an independent deep copy of the record.
func (r *Record) clone() *Record {
	data, err := json.Marshal(r)
	if err != nil {
		copied := *r
		return &copied
	}
	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		copied := *r
		return &copied
	}
	return &out
}

// Load fetches a persisted experiment record by id.
func Load(ctx context.Context, client store.Client, id string) (*Record, error) {
	result, err := client.Query(ctx, "id = :id", map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("loading experiment %s: %w", id, err)
	}
	if result.Count == 0 {
		return nil, fmt.Errorf("experiment %s not found", id)
	}
	return recordFromDocument(result.Data[0])
}
