package memory

import (
	"fmt"
	"sync"

	"github.com/botmesh-io/botmesh/core"
)

// InMemoryStore is a volatile core.MemoryStore keeping all namespaces
// in process-local maps. It is safe for concurrent access from
// arbitrarily many agents: Increment holds the store lock for the whole
// read-modify-write, and Remember computes its default under the lock
// so a missing key's default runs at most once.
type InMemoryStore struct {
	mu   sync.Mutex
	data map[core.Namespace]map[string]any
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: map[core.Namespace]map[string]any{}}
}

// Get returns the value stored under (ns, key).
func (s *InMemoryStore) Get(ns core.Namespace, key string) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.data[ns]
	if !ok {
		return nil, false, nil
	}
	v, ok := entries[key]
	return v, ok, nil
}

// Set stores value under (ns, key).
func (s *InMemoryStore) Set(ns core.Namespace, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.namespaceLocked(ns)[key] = value
	return nil
}

// Increment atomically adds delta to the counter under (ns, key),
// creating the entry at zero when absent. Concurrent increments on the
// same key never lose an update.
func (s *InMemoryStore) Increment(ns core.Namespace, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.namespaceLocked(ns)
	current, err := counterValue(entries[key])
	if err != nil {
		return 0, fmt.Errorf("increment %s/%s: %w", ns, key, err)
	}
	next := current + delta
	entries[key] = next
	return next, nil
}

// Remember returns the stored value for (ns, key), or computes, stores
// and returns the default when absent. The compute function runs at
// most once per missing key; keep it cheap, it executes under the
// store lock. A compute error leaves the key absent.
func (s *InMemoryStore) Remember(ns core.Namespace, key string, compute func() (any, error)) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.namespaceLocked(ns)
	if v, ok := entries[key]; ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return nil, err
	}
	entries[key] = v
	return v, nil
}

// namespaceLocked returns the entry map for ns, allocating it on first
// use. Caller must hold the lock.
func (s *InMemoryStore) namespaceLocked(ns core.Namespace) map[string]any {
	entries, ok := s.data[ns]
	if !ok {
		entries = map[string]any{}
		s.data[ns] = entries
	}
	return entries
}

// counterValue normalizes an existing entry to int64 for Increment.
func counterValue(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("existing value %v (%T) is not a counter", v, v)
	}
}

var _ core.MemoryStore = (*InMemoryStore)(nil)
