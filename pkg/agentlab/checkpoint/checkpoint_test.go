package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	cp := New("t1", "analyze", 3, []byte(`{"topic":"x"}`), "plan")

	assert.Equal(t, Version, cp.Version)
	assert.Equal(t, "t1", cp.ThreadID)
	assert.Equal(t, "analyze", cp.NodeID)
	assert.Equal(t, 3, cp.Step)
	assert.Equal(t, "plan", cp.NextNode)
	assert.False(t, cp.Timestamp.IsZero())
}

func TestMarshalUnmarshal(t *testing.T) {
	cp := New("t1", "analyze", 1, []byte(`{"topic":"x"}`), "plan").
		WithPrevNode("entry")

	data, err := cp.Marshal()
	require.NoError(t, err)

	decoded, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, cp.ThreadID, decoded.ThreadID)
	assert.Equal(t, cp.Step, decoded.Step)
	assert.Equal(t, cp.NextNode, decoded.NextNode)
	assert.Equal(t, "entry", decoded.PrevNodeID)
	assert.JSONEq(t, `{"topic":"x"}`, string(decoded.State))
}

func TestUnmarshal_Invalid(t *testing.T) {
	_, err := Unmarshal([]byte("not json"))
	assert.Error(t, err)
}
