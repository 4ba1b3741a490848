package checkpoint

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory checkpoint store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[int]storedCheckpoint // threadID -> step -> checkpoint
	closed bool
}

type storedCheckpoint struct {
	data []byte
	info Info
}

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[int]storedCheckpoint),
	}
}

// Append implements Store.
func (m *MemoryStore) Append(threadID string, step int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.data[threadID] == nil {
		m.data[threadID] = make(map[int]storedCheckpoint)
	}
	if _, exists := m.data[threadID][step]; exists {
		return ErrDuplicateStep
	}

	// Copy data to avoid retaining the caller's slice.
	stored := make([]byte, len(data))
	copy(stored, data)

	info := Info{ThreadID: threadID, Step: step, Size: int64(len(data))}
	if cp, err := Unmarshal(data); err == nil {
		info.NodeID = cp.NodeID
		info.Timestamp = cp.Timestamp
	}

	m.data[threadID][step] = storedCheckpoint{data: stored, info: info}
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(threadID string, step int) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	thread, ok := m.data[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	cp, ok := thread[step]
	if !ok {
		return nil, ErrNotFound
	}

	result := make([]byte, len(cp.data))
	copy(result, cp.data)
	return result, nil
}

// Latest implements Store.
func (m *MemoryStore) Latest(threadID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	thread, ok := m.data[threadID]
	if !ok || len(thread) == 0 {
		return nil, ErrNotFound
	}

	maxStep := -1
	for step := range thread {
		if step > maxStep {
			maxStep = step
		}
	}

	cp := thread[maxStep]
	result := make([]byte, len(cp.data))
	copy(result, cp.data)
	return result, nil
}

// List implements Store.
func (m *MemoryStore) List(threadID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	thread, ok := m.data[threadID]
	if !ok {
		return []Info{}, nil
	}

	infos := make([]Info, 0, len(thread))
	for _, cp := range thread {
		infos = append(infos, cp.info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Step < infos[j].Step
	})
	return infos, nil
}

// DeleteThread implements Store.
func (m *MemoryStore) DeleteThread(threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, threadID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the total number of checkpoints across all threads.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, thread := range m.data {
		count += len(thread)
	}
	return count
}
