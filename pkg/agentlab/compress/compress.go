// Package compress provides pluggable codecs that turn a snapshot's
// state payload into an opaque persisted byte form and back. A snapshot
// stores either the raw state or the compressed form, never both;
// selecting a codec supersedes the raw copy.
package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/brandonyhc/agentlab/pkg/agentlab/registry"
	"github.com/brandonyhc/agentlab/pkg/agentlab/state"
)

// Kind enumerates the built-in compressor codecs.
type Kind string

// Built-in compressor kinds.
const (
	// KindJSON serializes state to plain JSON bytes.
	KindJSON Kind = "json"
	// KindGzip serializes state to gzip-compressed JSON bytes.
	KindGzip Kind = "gzip"
)

// Compressor converts a state snapshot to persisted bytes and back.
type Compressor interface {
	Compress(s state.State) ([]byte, error)
	Decompress(data []byte) (state.State, error)
}

var codecs = registry.New[Kind, func() Compressor]()

func init() {
	codecs.Register(KindJSON, func() Compressor { return jsonCompressor{} })
	codecs.Register(KindGzip, func() Compressor { return gzipCompressor{} })
}

// RegisterKind makes a compressor constructor available under a kind.
func RegisterKind(kind Kind, factory func() Compressor) {
	codecs.Register(kind, factory)
}

// ForKind instantiates a compressor for the kind.
func ForKind(kind Kind) (Compressor, error) {
	factory, ok := codecs.Get(kind)
	if !ok {
		return nil, fmt.Errorf("unknown compressor kind: %q", kind)
	}
	return factory(), nil
}

// jsonCompressor stores the state as plain JSON.
type jsonCompressor struct{}

func (jsonCompressor) Compress(s state.State) ([]byte, error) {
	return json.Marshal(s)
}

func (jsonCompressor) Decompress(data []byte) (state.State, error) {
	return state.Unmarshal(data)
}

// gzipCompressor stores the state as gzip-compressed JSON.
type gzipCompressor struct{}

func (gzipCompressor) Compress(s state.State) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func (gzipCompressor) Decompress(data []byte) (state.State, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip open: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	return state.Unmarshal(raw)
}
