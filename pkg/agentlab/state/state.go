// Package state defines the record threaded through a workflow graph.
//
// A State is a mapping of named fields to arbitrary values. Nodes return
// partial updates that are merged shallowly into the current state;
// routing predicates and metric calculators read it. The engine treats
// the contents as opaque except for the fields a predicate inspects.
package state

import (
	"fmt"
	"time"

	"dario.cat/mergo"
	json "github.com/goccy/go-json"
)

// State is the mutable record a pipeline threads through its graph.
// Keys are field names; values are arbitrary JSON-serializable data.
type State map[string]any

// Message is one entry in a state's ordered message log.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MessagesKey is the conventional field holding the ordered message log.
const MessagesKey = "messages"

// New returns an empty state.
func New() State {
	return make(State)
}

// Apply merges a partial update into the state: returned keys replace
// existing keys, fields absent from the update are untouched. It
// mutates the receiver and returns it for convenience.
//
// The merge is deliberately shallow. Nodes that want to extend a nested
// structure (e.g. append to the message log) must read the field,
// extend it, and return the whole field.
func (s State) Apply(update State) State {
	for k, v := range update {
		s[k] = v
	}
	return s
}

// Clone returns a deep copy of the state, made via a JSON round trip so
// nested maps and slices do not alias the original. Values that cannot
// survive a JSON round trip (channels, funcs) must not be stored in a
// state that will be cloned, checkpointed, or snapshotted.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		// Fall back to a shallow copy; nested values will alias.
		out := make(State, len(s))
		for k, v := range s {
			out[k] = v
		}
		return out
	}
	var out State
	if err := json.Unmarshal(data, &out); err != nil {
		out = make(State, len(s))
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// WithDefaults deep-merges defaults underneath the state: fields already
// present win, missing fields are filled in from defaults. Used when a
// pipeline combines its default state with a caller's initial input.
func (s State) WithDefaults(defaults State) (State, error) {
	merged := s.Clone()
	if merged == nil {
		merged = New()
	}
	if err := mergo.Merge(&merged, defaults); err != nil {
		return nil, fmt.Errorf("merge defaults: %w", err)
	}
	return merged, nil
}

// Marshal serializes the state to JSON.
func (s State) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal deserializes a state from JSON.
func Unmarshal(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return s, nil
}

// String returns the string value for key, or "" if missing or not a string.
func (s State) String(key string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return ""
}

// Int returns the integer value for key, or 0 if missing or not numeric.
// JSON round trips store numbers as float64, so both are accepted.
func (s State) Int(key string) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Float returns the float64 value for key, or 0 if missing or not numeric.
func (s State) Float(key string) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Map returns the nested map value for key, or nil if missing or not a map.
func (s State) Map(key string) map[string]any {
	if v, ok := s[key].(map[string]any); ok {
		return v
	}
	return nil
}

// Slice returns the slice value for key, or nil if missing or not a slice.
func (s State) Slice(key string) []any {
	if v, ok := s[key].([]any); ok {
		return v
	}
	return nil
}

// Messages returns the ordered message log, or nil if absent.
// Entries are decoded leniently: both Message values and the generic
// map form produced by a JSON round trip are accepted.
func (s State) Messages() []Message {
	raw, ok := s[MessagesKey]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []Message:
		return v
	case []any:
		msgs := make([]Message, 0, len(v))
		for _, item := range v {
			switch m := item.(type) {
			case Message:
				msgs = append(msgs, m)
			case map[string]any:
				var msg Message
				data, err := json.Marshal(m)
				if err != nil {
					continue
				}
				if err := json.Unmarshal(data, &msg); err != nil {
					continue
				}
				msgs = append(msgs, msg)
			}
		}
		return msgs
	}
	return nil
}

// AppendMessage returns a copy of the message log with msg appended.
// The caller stores the result back under MessagesKey, keeping node
// updates in the returned-field shape the engine merges.
func (s State) AppendMessage(msg Message) []Message {
	msgs := s.Messages()
	out := make([]Message, 0, len(msgs)+1)
	out = append(out, msgs...)
	out = append(out, msg)
	return out
}
