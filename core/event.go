package core

import (
	"time"

	"github.com/google/uuid"
)

// Well-known inbound event types. The runtime treats EventMessage
// specially: it is the only event kind the command dispatcher inspects.
// Every other type flows exclusively through the event router.
const (
	EventMessage    = "message"
	EventMemberJoin = "member.join"
	EventMemberPart = "member.part"
	EventTyping     = "typing"
	EventReaction   = "reaction"
)

// InboundEvent is one protocol event delivered to an agent by the
// external protocol client. After delivery it should be treated as
// immutable. Body carries the plain-text message body for EventMessage
// events; Raw preserves whatever protocol-specific payload the client
// received so event handlers can reach fields the core does not model.
type InboundEvent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	RoomID    string         `json:"room_id"`
	Sender    string         `json:"sender"`
	Body      string         `json:"body,omitempty"`
	Direct    bool           `json:"direct"`
	Timestamp time.Time      `json:"timestamp"`
	Raw       map[string]any `json:"raw,omitempty"`
}

// NewEvent creates a bare event of the given type in the given room.
// Prefer the helper constructors for common kinds.
func NewEvent(eventType, roomID, sender string) InboundEvent {
	return InboundEvent{
		ID:        NewID(),
		Type:      eventType,
		RoomID:    roomID,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessageEvent creates a room message event with the given body.
func NewMessageEvent(roomID, sender, body string) InboundEvent {
	e := NewEvent(EventMessage, roomID, sender)
	e.Body = body
	return e
}

// NewDirectMessageEvent creates a message event flagged as arriving in a
// direct (one-to-one) room.
func NewDirectMessageEvent(roomID, sender, body string) InboundEvent {
	e := NewMessageEvent(roomID, sender, body)
	e.Direct = true
	return e
}

// NewID generates a unique identifier for events.
func NewID() string { return uuid.NewString() }

// IsMessage reports whether the event is a room message.
func (e InboundEvent) IsMessage() bool { return e.Type == EventMessage }

// Message is one entry in a conversation context's history.
type Message struct {
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}
