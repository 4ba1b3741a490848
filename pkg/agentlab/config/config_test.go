package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_NilData(t *testing.T) {
	c := New(nil)
	assert.Equal(t, "fallback", c.String("missing", "fallback"))
}

func TestString(t *testing.T) {
	c := New(map[string]any{"name": "exp", "count": 3})
	assert.Equal(t, "exp", c.String("name", ""))
	assert.Equal(t, "d", c.String("count", "d"))
	assert.Equal(t, "d", c.String("missing", "d"))
}

func TestDuration(t *testing.T) {
	c := New(map[string]any{
		"str":     "1m30s",
		"int":     5,
		"float":   1.5,
		"native":  2 * time.Second,
		"invalid": "not-a-duration",
	})

	assert.Equal(t, 90*time.Second, c.Duration("str", 0))
	assert.Equal(t, 5*time.Second, c.Duration("int", 0))
	assert.Equal(t, 1500*time.Millisecond, c.Duration("float", 0))
	assert.Equal(t, 2*time.Second, c.Duration("native", 0))
	assert.Equal(t, time.Minute, c.Duration("invalid", time.Minute))
	assert.Equal(t, time.Minute, c.Duration("missing", time.Minute))
}

func TestInt(t *testing.T) {
	c := New(map[string]any{
		"int":        10,
		"int64":      int64(11),
		"whole":      12.0,
		"fractional": 12.5,
	})

	assert.Equal(t, 10, c.Int("int", 0))
	assert.Equal(t, 11, c.Int("int64", 0))
	assert.Equal(t, 12, c.Int("whole", 0))
	assert.Equal(t, -1, c.Int("fractional", -1))
	assert.Equal(t, -1, c.Int("missing", -1))
}

func TestBoolAndFloat(t *testing.T) {
	c := New(map[string]any{"on": true, "ratio": 0.5, "n": 2})

	assert.True(t, c.Bool("on", false))
	assert.False(t, c.Bool("missing", false))
	assert.Equal(t, 0.5, c.Float("ratio", 0))
	assert.Equal(t, 2.0, c.Float("n", 0))
}

func TestStringSlice(t *testing.T) {
	c := New(map[string]any{
		"strs":  []string{"a", "b"},
		"anys":  []any{"c", "d"},
		"mixed": []any{"e", 1},
	})

	assert.Equal(t, []string{"a", "b"}, c.StringSlice("strs", nil))
	assert.Equal(t, []string{"c", "d"}, c.StringSlice("anys", nil))
	assert.Equal(t, []string{"x"}, c.StringSlice("mixed", []string{"x"}))
}

func TestSub(t *testing.T) {
	c := New(map[string]any{
		"experiment": map[string]any{"max_snapshots": 5},
		"scalar":     1,
	})

	assert.Equal(t, 5, c.Sub("experiment").Int("max_snapshots", 0))
	assert.Equal(t, 0, c.Sub("scalar").Int("anything", 0))
	assert.Equal(t, 0, c.Sub("missing").Int("anything", 0))
}

func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte(`
experiment:
  snapshot_interval: 30s
  max_snapshots: 10
  metrics:
    - message_count
    - iteration_count
`))
	require.NoError(t, err)

	exp := cfg.Sub("experiment")
	assert.Equal(t, 30*time.Second, exp.Duration("snapshot_interval", 0))
	assert.Equal(t, 10, exp.Int("max_snapshots", 0))
	assert.Equal(t, []string{"message_count", "iteration_count"}, exp.StringSlice("metrics", nil))
}

func TestFromJSON(t *testing.T) {
	cfg, err := FromJSON([]byte(`{"recursion_limit": 25}`))
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Int("recursion_limit", 0))
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "conf.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("name: test"), 0o644))

	cfg, err := FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "test", cfg.String("name", ""))

	_, err = FromFile(filepath.Join(dir, "conf.toml"))
	assert.Error(t, err)

	_, err = FromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestFromYAML_Invalid(t *testing.T) {
	_, err := FromYAML([]byte("key: [unclosed"))
	assert.Error(t, err)
}
