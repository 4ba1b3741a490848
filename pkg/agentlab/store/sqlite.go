package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteClient persists records as JSON documents in SQLite.
// Each client is bound to one collection; predicates are translated
// to json_extract filters over the document body.
type SQLiteClient struct {
	db         *sql.DB
	collection string
	mu         sync.RWMutex
	closed     bool
}

// NewSQLiteClient opens (or creates) a SQLite-backed store.
// The path should be a file path (e.g., "./experiments.db") or
// ":memory:" for testing.
func NewSQLiteClient(path, collection string) (*SQLiteClient, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id TEXT NOT NULL,
			collection TEXT NOT NULL,
			content TEXT NOT NULL,
			PRIMARY KEY (id, collection)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteClient{db: db, collection: collection}, nil
}

// Upsert implements Client.
func (c *SQLiteClient) Upsert(ctx context.Context, id string, data map[string]any) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return "", ErrClientClosed
	}

	if id == "" {
		id = uuid.NewString()
	}

	content, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO records (id, collection, content)
		VALUES (?, ?, ?)
		ON CONFLICT(id, collection) DO UPDATE SET
			content = excluded.content
	`, id, c.collection, string(content))
	if err != nil {
		return "", fmt.Errorf("upsert record: %w", err)
	}
	return id, nil
}

// Query implements Client.
func (c *SQLiteClient) Query(ctx context.Context, query string, params map[string]any) (QueryResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return QueryResult{}, ErrClientClosed
	}

	where, args, err := c.translate(query, params)
	if err != nil {
		return QueryResult{}, err
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT id, content FROM records WHERE collection = ?"+where,
		append([]any{c.collection}, args...)...)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	data := []map[string]any{}
	for rows.Next() {
		var id, content string
		if err := rows.Scan(&id, &content); err != nil {
			return QueryResult{}, fmt.Errorf("scan record: %w", err)
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(content), &doc); err != nil {
			return QueryResult{}, fmt.Errorf("decode record %s: %w", id, err)
		}
		doc["id"] = id
		data = append(data, doc)
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("iterate records: %w", err)
	}

	return newQueryResult(data, query, params), nil
}

// Delete implements Client.
func (c *SQLiteClient) Delete(ctx context.Context, query string, params map[string]any) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClientClosed
	}

	where, args, err := c.translate(query, params)
	if err != nil {
		return 0, err
	}

	res, err := c.db.ExecContext(ctx,
		"DELETE FROM records WHERE collection = ?"+where,
		append([]any{c.collection}, args...)...)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return res.RowsAffected()
}

// Close implements Client.
func (c *SQLiteClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

// translate turns a mini-language predicate into a SQL WHERE fragment.
// The id field maps to the primary key column; every other field is a
// json_extract over the document body.
func (c *SQLiteClient) translate(query string, params map[string]any) (string, []any, error) {
	conds, err := parseQuery(query)
	if err != nil {
		return "", nil, err
	}
	if len(conds) == 0 {
		return "", nil, nil
	}

	args, err := bindParams(conds, params)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	for _, cond := range conds {
		sb.WriteString(" AND ")
		if cond.Field == "id" {
			sb.WriteString("id")
		} else {
			fmt.Fprintf(&sb, "json_extract(content, '$.%s')", cond.Field)
		}
		sb.WriteString(" ")
		sb.WriteString(cond.Op)
		sb.WriteString(" ?")
	}
	return sb.String(), args, nil
}
