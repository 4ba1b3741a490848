package store_test

import (
	"context"
	"testing"

	"github.com/brandonyhc/agentlab/pkg/agentlab/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clientFactory func(t *testing.T) store.Client

// clientContractTest runs contract tests against any Client implementation.
func clientContractTest(t *testing.T, name string, factory clientFactory) {
	ctx := context.Background()

	t.Run(name+"/Upsert_GeneratesID", func(t *testing.T) {
		client := factory(t)
		defer client.Close()

		id, err := client.Upsert(ctx, "", map[string]any{"status": "running"})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	})

	t.Run(name+"/Upsert_Idempotent", func(t *testing.T) {
		client := factory(t)
		defer client.Close()

		_, err := client.Upsert(ctx, "exp-1", map[string]any{"status": "running"})
		require.NoError(t, err)
		_, err = client.Upsert(ctx, "exp-1", map[string]any{"status": "completed"})
		require.NoError(t, err)

		result, err := client.Query(ctx, "id = :id", map[string]any{"id": "exp-1"})
		require.NoError(t, err)
		require.Equal(t, 1, result.Count)
		assert.Equal(t, "completed", result.Data[0]["status"])
	})

	t.Run(name+"/Query_ByField", func(t *testing.T) {
		client := factory(t)
		defer client.Close()

		_, err := client.Upsert(ctx, "a", map[string]any{"status": "running", "steps": 3})
		require.NoError(t, err)
		_, err = client.Upsert(ctx, "b", map[string]any{"status": "completed", "steps": 7})
		require.NoError(t, err)

		result, err := client.Query(ctx, "status = :s", map[string]any{"s": "completed"})
		require.NoError(t, err)
		require.Equal(t, 1, result.Count)
		assert.Equal(t, "b", result.Data[0]["id"])
		assert.Equal(t, "status = :s", result.Query)
		assert.False(t, result.Timestamp.IsZero())
	})

	t.Run(name+"/Query_Conjunction", func(t *testing.T) {
		client := factory(t)
		defer client.Close()

		_, err := client.Upsert(ctx, "a", map[string]any{"status": "running", "steps": 3})
		require.NoError(t, err)
		_, err = client.Upsert(ctx, "b", map[string]any{"status": "running", "steps": 9})
		require.NoError(t, err)

		result, err := client.Query(ctx, "status = :s AND steps > :min",
			map[string]any{"s": "running", "min": 5})
		require.NoError(t, err)
		require.Equal(t, 1, result.Count)
		assert.Equal(t, "b", result.Data[0]["id"])
	})

	t.Run(name+"/Query_EmptyPredicateMatchesAll", func(t *testing.T) {
		client := factory(t)
		defer client.Close()

		_, err := client.Upsert(ctx, "a", map[string]any{"v": 1})
		require.NoError(t, err)
		_, err = client.Upsert(ctx, "b", map[string]any{"v": 2})
		require.NoError(t, err)

		result, err := client.Query(ctx, "", nil)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Count)
	})

	t.Run(name+"/Query_NoMatches", func(t *testing.T) {
		client := factory(t)
		defer client.Close()

		result, err := client.Query(ctx, "status = :s", map[string]any{"s": "failed"})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Count)
		assert.Empty(t, result.Data)
	})

	t.Run(name+"/Query_BadPredicate", func(t *testing.T) {
		client := factory(t)
		defer client.Close()

		_, err := client.Query(ctx, "status == running", nil)
		assert.ErrorIs(t, err, store.ErrBadQuery)
	})

	t.Run(name+"/Query_MissingParam", func(t *testing.T) {
		client := factory(t)
		defer client.Close()

		_, err := client.Query(ctx, "status = :s", map[string]any{})
		assert.ErrorIs(t, err, store.ErrBadQuery)
	})

	t.Run(name+"/Delete", func(t *testing.T) {
		client := factory(t)
		defer client.Close()

		_, err := client.Upsert(ctx, "a", map[string]any{"status": "failed"})
		require.NoError(t, err)
		_, err = client.Upsert(ctx, "b", map[string]any{"status": "failed"})
		require.NoError(t, err)
		_, err = client.Upsert(ctx, "c", map[string]any{"status": "completed"})
		require.NoError(t, err)

		count, err := client.Delete(ctx, "status = :s", map[string]any{"s": "failed"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		result, err := client.Query(ctx, "", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Count)
	})

	t.Run(name+"/Closed", func(t *testing.T) {
		client := factory(t)
		require.NoError(t, client.Close())

		_, err := client.Upsert(ctx, "a", map[string]any{})
		assert.ErrorIs(t, err, store.ErrClientClosed)
		_, err = client.Query(ctx, "", nil)
		assert.ErrorIs(t, err, store.ErrClientClosed)
	})
}

func TestMemoryClient_Contract(t *testing.T) {
	clientContractTest(t, "memory", func(t *testing.T) store.Client {
		return store.NewMemoryClient()
	})
}

func TestSQLiteClient_Contract(t *testing.T) {
	clientContractTest(t, "sqlite", func(t *testing.T) store.Client {
		client, err := store.NewSQLiteClient(":memory:", "experiments")
		require.NoError(t, err)
		return client
	})
}

func TestSQLiteClient_CollectionRequired(t *testing.T) {
	_, err := store.NewSQLiteClient(":memory:", "")
	assert.Error(t, err)
}

func TestSQLiteClient_CollectionIsolation(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/records.db"

	exps, err := store.NewSQLiteClient(path, "experiments")
	require.NoError(t, err)
	defer exps.Close()
	runs, err := store.NewSQLiteClient(path, "runs")
	require.NoError(t, err)
	defer runs.Close()

	_, err = exps.Upsert(ctx, "x", map[string]any{"kind": "experiment"})
	require.NoError(t, err)

	result, err := runs.Query(ctx, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
}

func TestMemoryClient_NestedFieldQuery(t *testing.T) {
	ctx := context.Background()
	client := store.NewMemoryClient()
	defer client.Close()

	_, err := client.Upsert(ctx, "a", map[string]any{
		"config": map[string]any{"llm": "gpt-4"},
	})
	require.NoError(t, err)

	result, err := client.Query(ctx, "config.llm = :m", map[string]any{"m": "gpt-4"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
}
