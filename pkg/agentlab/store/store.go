// Package store defines the narrow key-addressed persistence contract
// the experiment runner consumes, plus reference backends. Records are
// semi-structured documents addressed by id within a collection; query
// predicates use a minimal mini-language with named placeholders
// ("status = :status") that each backend translates to its native
// filter syntax.
package store

import (
	"context"
	"errors"
	"time"
)

// Client is the persistence contract consumed by the experiment runner.
// Implementations must make Upsert idempotent per id: repeated partial
// persists of the same record never corrupt it.
type Client interface {
	// Upsert inserts or replaces the record with the given id and
	// returns the id. An empty id asks the backend to generate one.
	Upsert(ctx context.Context, id string, data map[string]any) (string, error)

	// Query returns all records matching the predicate string.
	// Params supplies values for the predicate's named placeholders.
	Query(ctx context.Context, query string, params map[string]any) (QueryResult, error)

	// Delete removes all records matching the predicate string and
	// returns how many were removed.
	Delete(ctx context.Context, query string, params map[string]any) (int64, error)

	// Close releases any resources (connections, files).
	Close() error
}

// QueryResult is the generic container for query results.
type QueryResult struct {
	Data      []map[string]any `json:"data"`
	Count     int              `json:"count"`
	Query     string           `json:"query"`
	Params    map[string]any   `json:"params,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// newQueryResult assembles a QueryResult with its timestamp set.
func newQueryResult(data []map[string]any, query string, params map[string]any) QueryResult {
	return QueryResult{
		Data:      data,
		Count:     len(data),
		Query:     query,
		Params:    params,
		Timestamp: time.Now().UTC(),
	}
}

// Sentinel errors for store operations.
var (
	// ErrClientClosed indicates the client has been closed.
	ErrClientClosed = errors.New("store client closed")

	// ErrBadQuery indicates a predicate string the mini-language
	// cannot parse.
	ErrBadQuery = errors.New("malformed query predicate")
)
