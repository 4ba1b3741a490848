package store

import (
	"context"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// MemoryClient is an in-memory store for testing and examples.
// Data is lost when the process exits.
type MemoryClient struct {
	mu      sync.RWMutex
	records map[string]map[string]any // id -> document
	closed  bool
}

// NewMemoryClient creates a new in-memory store client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		records: make(map[string]map[string]any),
	}
}

// Upsert implements Client.
func (m *MemoryClient) Upsert(_ context.Context, id string, data map[string]any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrClientClosed
	}

	if id == "" {
		id = uuid.NewString()
	}

	// Round-trip through JSON so stored documents do not alias caller
	// structures and compare like the SQLite backend's.
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("decode record: %w", err)
	}

	m.records[id] = doc
	return id, nil
}

// Query implements Client.
func (m *MemoryClient) Query(_ context.Context, query string, params map[string]any) (QueryResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return QueryResult{}, ErrClientClosed
	}

	conds, err := parseQuery(query)
	if err != nil {
		return QueryResult{}, err
	}
	if _, err := bindParams(conds, params); err != nil {
		return QueryResult{}, err
	}

	data := []map[string]any{}
	for id, doc := range m.records {
		if matches(doc, id, conds, params) {
			out := make(map[string]any, len(doc)+1)
			for k, v := range doc {
				out[k] = v
			}
			out["id"] = id
			data = append(data, out)
		}
	}

	return newQueryResult(data, query, params), nil
}

// Delete implements Client.
func (m *MemoryClient) Delete(_ context.Context, query string, params map[string]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClientClosed
	}

	conds, err := parseQuery(query)
	if err != nil {
		return 0, err
	}
	if _, err := bindParams(conds, params); err != nil {
		return 0, err
	}

	var count int64
	for id, doc := range m.records {
		if matches(doc, id, conds, params) {
			delete(m.records, id)
			count++
		}
	}
	return count, nil
}

// Close implements Client.
func (m *MemoryClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.records = nil
	return nil
}

// Len returns the number of stored records. Useful for testing.
func (m *MemoryClient) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// matches evaluates parsed conditions against one document.
func matches(doc map[string]any, id string, conds []condition, params map[string]any) bool {
	for _, cond := range conds {
		var actual any
		if cond.Field == "id" {
			actual = id
		} else {
			actual = lookupField(doc, cond.Field)
		}
		if !compare(actual, cond.Op, params[cond.Param]) {
			return false
		}
	}
	return true
}

// lookupField resolves a possibly dotted field path within a document.
func lookupField(doc map[string]any, field string) any {
	var current any = doc
	for {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		dot := -1
		for i, r := range field {
			if r == '.' {
				dot = i
				break
			}
		}
		if dot < 0 {
			return m[field]
		}
		current = m[field[:dot]]
		field = field[dot+1:]
	}
}

// compare applies a mini-language operator with loose numeric typing,
// matching how JSON backends compare numbers.
func compare(actual any, op string, expected any) bool {
	an, aok := toFloat(actual)
	en, eok := toFloat(expected)
	if aok && eok {
		switch op {
		case "=":
			return an == en
		case "!=":
			return an != en
		case "<":
			return an < en
		case "<=":
			return an <= en
		case ">":
			return an > en
		case ">=":
			return an >= en
		}
		return false
	}

	as, aok := actual.(string)
	es, eok := expected.(string)
	if aok && eok {
		switch op {
		case "=":
			return as == es
		case "!=":
			return as != es
		case "<":
			return as < es
		case "<=":
			return as <= es
		case ">":
			return as > es
		case ">=":
			return as >= es
		}
		return false
	}

	switch op {
	case "=":
		return actual == expected
	case "!=":
		return actual != expected
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
