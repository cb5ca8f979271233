package conversation

import (
	"sync"

	"github.com/botmesh-io/botmesh/core"
)

// record pairs one canonical context with its serialization lock.
// Holding the record mutex across a whole mutator application is what
// prevents two concurrent updates to the same triple from interleaving.
type record struct {
	mu  sync.Mutex
	ctx *core.ConversationContext
}

// InMemoryStore is a volatile core.ConversationStore keeping contexts
// in a process-local map. Every returned context is a clone; the
// canonical record is only ever mutated under its own lock inside
// Update/AppendMessage.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[core.ConversationKey]*record
}

// NewInMemoryStore constructs an empty in-memory conversation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: map[core.ConversationKey]*record{}}
}

// GetOrCreate returns the context for the triple, creating it on first
// use. A second call with the same key returns the same record.
func (s *InMemoryStore) GetOrCreate(key core.ConversationKey) (*core.ConversationContext, error) {
	rec := s.recordFor(key)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.ctx.Clone(), nil
}

// Update applies the mutator under the record's lock and returns the
// resulting state as a clone.
func (s *InMemoryStore) Update(key core.ConversationKey, mutate func(*core.ConversationContext)) (*core.ConversationContext, error) {
	rec := s.recordFor(key)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	mutate(rec.ctx)
	return rec.ctx.Clone(), nil
}

// AppendMessage pushes msg onto the history and bumps the message
// count and last-message timestamp atomically with the push.
func (s *InMemoryStore) AppendMessage(key core.ConversationKey, msg core.Message) error {
	_, err := s.Update(key, func(c *core.ConversationContext) { c.Record(msg) })
	return err
}

// recordFor returns the record for key, allocating it exactly once.
func (s *InMemoryStore) recordFor(key core.ConversationKey) *record {
	s.mu.RLock()
	rec, ok := s.records[key]
	s.mu.RUnlock()
	if ok {
		return rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[key]; ok {
		return rec
	}
	rec = &record{ctx: core.NewConversationContext(key)}
	s.records[key] = rec
	return rec
}

var _ core.ConversationStore = (*InMemoryStore)(nil)
