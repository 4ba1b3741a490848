package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApply_ShallowMerge verifies returned keys replace existing keys
// and absent keys are untouched.
func TestApply_ShallowMerge(t *testing.T) {
	s := State{"a": 1, "b": "keep", "nested": map[string]any{"x": 1, "y": 2}}

	s.Apply(State{"a": 2, "nested": map[string]any{"x": 9}})

	assert.Equal(t, 2, s.Int("a"))
	assert.Equal(t, "keep", s.String("b"))
	// Shallow: the whole nested map was replaced, not merged.
	assert.Equal(t, map[string]any{"x": 9}, s.Map("nested"))
}

// TestClone_NoAliasing verifies mutations of a clone never show through
// to the original, including nested structures.
func TestClone_NoAliasing(t *testing.T) {
	s := State{
		"count":  3,
		"nested": map[string]any{"inner": []any{"a", "b"}},
	}

	clone := s.Clone()
	clone["count"] = 99
	clone.Map("nested")["inner"] = []any{"mutated"}

	assert.Equal(t, 3, s.Int("count"))
	assert.Equal(t, []any{"a", "b"}, s.Map("nested")["inner"])
}

func TestClone_Nil(t *testing.T) {
	var s State
	assert.Nil(t, s.Clone())
}

// TestWithDefaults verifies existing fields win over defaults.
func TestWithDefaults(t *testing.T) {
	defaults := State{"iterations": 0, "status": "running", "topic": ""}
	s := State{"topic": "turing machines"}

	merged, err := s.WithDefaults(defaults)
	require.NoError(t, err)

	assert.Equal(t, "turing machines", merged.String("topic"))
	assert.Equal(t, "running", merged.String("status"))
	assert.Equal(t, 0, merged.Int("iterations"))
	// Original untouched.
	assert.NotContains(t, s, "status")
}

func TestAccessors_MissingOrMistyped(t *testing.T) {
	s := State{"n": "not a number", "s": 42}

	assert.Equal(t, 0, s.Int("n"))
	assert.Equal(t, 0.0, s.Float("n"))
	assert.Equal(t, "", s.String("s"))
	assert.Nil(t, s.Map("missing"))
	assert.Nil(t, s.Slice("missing"))
}

func TestAccessors_JSONRoundTripNumbers(t *testing.T) {
	s := State{"iterations": 7}
	data, err := s.Marshal()
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)

	// Numbers come back as float64 after a round trip.
	assert.Equal(t, 7, decoded.Int("iterations"))
	assert.Equal(t, 7.0, decoded.Float("iterations"))
}

func TestMessages_RoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	s := New()
	s[MessagesKey] = s.AppendMessage(Message{Role: "user", Content: "hello", Timestamp: now})
	s[MessagesKey] = s.AppendMessage(Message{Role: "assistant", Content: "hi", Timestamp: now})

	data, err := s.Marshal()
	require.NoError(t, err)
	decoded, err := Unmarshal(data)
	require.NoError(t, err)

	msgs := decoded.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "hi", msgs[1].Content)
}

func TestAppendMessage_DoesNotMutateOriginal(t *testing.T) {
	s := State{MessagesKey: []Message{{Role: "user", Content: "first"}}}

	out := s.AppendMessage(Message{Role: "assistant", Content: "second"})

	assert.Len(t, out, 2)
	assert.Len(t, s.Messages(), 1)
}
