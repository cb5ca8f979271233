package core

import "time"

// ConversationKey uniquely identifies a conversation context. The
// store enforces uniqueness of the triple; callers never need to
// deduplicate.
type ConversationKey struct {
	Agent string `json:"agent"`
	User  string `json:"user"`
	Room  string `json:"room"`
}

// ConversationContext is the durable per (agent, user, room) state:
// a free-form context map, an ordered message history, a running
// message count and the timestamp of the latest message. The runtime
// records activity on every inbound message before handlers run.
type ConversationContext struct {
	Key           ConversationKey `json:"key"`
	Context       map[string]any  `json:"context"`
	History       []Message       `json:"history"`
	MessageCount  int             `json:"message_count"`
	LastMessageAt time.Time       `json:"last_message_at"`
	Created       time.Time       `json:"created"`
}

// NewConversationContext creates an empty context for the given key.
func NewConversationContext(key ConversationKey) *ConversationContext {
	return &ConversationContext{
		Key:     key,
		Context: map[string]any{},
		History: []Message{},
		Created: time.Now().UTC(),
	}
}

// Clone returns a deep copy safe for independent mutation. Stores hand
// out clones so callers cannot corrupt the canonical record outside an
// Update mutator.
func (c *ConversationContext) Clone() *ConversationContext {
	clone := &ConversationContext{
		Key:           c.Key,
		Context:       make(map[string]any, len(c.Context)),
		History:       make([]Message, len(c.History)),
		MessageCount:  c.MessageCount,
		LastMessageAt: c.LastMessageAt,
		Created:       c.Created,
	}
	for k, v := range c.Context {
		clone.Context[k] = v
	}
	copy(clone.History, c.History)
	return clone
}

// Record appends a message to the history and advances the count and
// last-message timestamp in one step. Intended to run inside a store's
// per-key serialization (see ConversationStore.AppendMessage).
func (c *ConversationContext) Record(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	c.History = append(c.History, msg)
	c.MessageCount++
	c.LastMessageAt = msg.Timestamp
}

// ConversationStore persists conversation contexts.
//
// Contract:
//   - GetOrCreate returns the existing record for the triple, creating
//     it on first use; a second creation attempt never duplicates.
//   - Update applies the mutator under per-key serialization, so two
//     concurrent updates to the same triple cannot interleave and lose
//     writes. Different triples may update concurrently.
//   - AppendMessage pushes onto the history and bumps count/timestamp
//     atomically with the push.
//
// All methods return clones; mutate only inside an Update mutator.
type ConversationStore interface {
	GetOrCreate(key ConversationKey) (*ConversationContext, error)
	Update(key ConversationKey, mutate func(*ConversationContext)) (*ConversationContext, error)
	AppendMessage(key ConversationKey, msg Message) error
}
