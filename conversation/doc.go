// Package conversation provides implementations of
// core.ConversationStore, the keyed (agent, user, room) state with
// message history. Updates to one triple are serialized; different
// triples update concurrently. The sqlite subpackage provides a
// durable variant.
package conversation
