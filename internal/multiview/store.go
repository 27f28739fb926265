package multiview

import "sync"

// Store is the key-value string store the layout is persisted to.
// Implementations can be in-memory, file-based, or remote; see
// internal/platform/kvstore for the on-disk backends.
type Store interface {
	// Get returns the value for key. ok is false when the key was never set.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// Entry is one key/value pair of a batch write.
type Entry struct {
	Key   string
	Value string
}

// BatchStore is a Store that can apply several writes atomically. SaveLayout
// uses it when available so a crash never leaves half a layout behind.
type BatchStore interface {
	Store
	SetBatch(entries []Entry) error
}

// InMemoryStore is an in-memory implementation of Store.
type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{values: make(map[string]string)}
}

// Get implements Store.Get.
func (s *InMemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set implements Store.Set.
func (s *InMemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// SetBatch implements BatchStore.
func (s *InMemoryStore) SetBatch(entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.values[e.Key] = e.Value
	}
	return nil
}
