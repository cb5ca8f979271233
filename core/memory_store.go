package core

// Namespace scopes memory keys. The runtime uses two kinds: the single
// global namespace shared by every agent, and one namespace per agent
// identity.
type Namespace string

// GlobalNamespace is the memory namespace shared by all agents.
const GlobalNamespace Namespace = "global"

// AgentNamespace returns the private memory namespace for the named
// agent.
func AgentNamespace(name string) Namespace { return Namespace("agent:" + name) }

// MemoryStore is namespaced key/value state with atomic counters.
//
// Contract:
//   - Increment is atomic: concurrent increments on the same key never
//     lose an update, and an absent key is created at zero before the
//     delta is applied.
//   - Remember computes the default at most once per missing key; a
//     present key is returned without invoking compute.
//   - A failure of the underlying durability backend surfaces as a
//     *StorageError, never silently.
type MemoryStore interface {
	Get(ns Namespace, key string) (any, bool, error)
	Set(ns Namespace, key string, value any) error
	Increment(ns Namespace, key string, delta int64) (int64, error)
	Remember(ns Namespace, key string, compute func() (any, error)) (any, error)
}

// MemoryView is a MemoryStore bound to one namespace. Handlers receive
// views through the invocation context instead of an ambient global
// store handle.
type MemoryView struct {
	store MemoryStore
	ns    Namespace
}

// NewMemoryView binds store to the given namespace.
func NewMemoryView(store MemoryStore, ns Namespace) MemoryView {
	return MemoryView{store: store, ns: ns}
}

// Namespace returns the bound namespace.
func (v MemoryView) Namespace() Namespace { return v.ns }

// Get reads a key from the bound namespace.
func (v MemoryView) Get(key string) (any, bool, error) { return v.store.Get(v.ns, key) }

// Set writes a key in the bound namespace.
func (v MemoryView) Set(key string, value any) error { return v.store.Set(v.ns, key, value) }

// Increment atomically adjusts a counter in the bound namespace.
func (v MemoryView) Increment(key string, delta int64) (int64, error) {
	return v.store.Increment(v.ns, key, delta)
}

// Remember reads key or initializes it with compute, invoked at most
// once per missing key.
func (v MemoryView) Remember(key string, compute func() (any, error)) (any, error) {
	return v.store.Remember(v.ns, key, compute)
}
