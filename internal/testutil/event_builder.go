package testutil

import (
	"time"

	"github.com/botmesh-io/botmesh/core"
)

// EventBuilder provides a fluent helper for constructing inbound
// events in tests. Example:
//
//	ev := NewEventBuilder().Room("!room").Sender("@user").Body("!ping").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EventBuilder struct {
	eventType string
	roomID    string
	sender    string
	body      string
	direct    bool
	timestamp time.Time
}

// NewEventBuilder creates a builder defaulting to a message event in
// room "!room:example.org" from "@user:example.org".
func NewEventBuilder() *EventBuilder {
	return &EventBuilder{
		eventType: core.EventMessage,
		roomID:    "!room:example.org",
		sender:    "@user:example.org",
	}
}

// Type sets the event type (chainable).
func (b *EventBuilder) Type(t string) *EventBuilder { b.eventType = t; return b }

// Room sets the room id (chainable).
func (b *EventBuilder) Room(id string) *EventBuilder { b.roomID = id; return b }

// Sender sets the sending user id (chainable).
func (b *EventBuilder) Sender(id string) *EventBuilder { b.sender = id; return b }

// Body sets the message body (chainable).
func (b *EventBuilder) Body(body string) *EventBuilder { b.body = body; return b }

// Direct marks the event as arriving in a direct room (chainable).
func (b *EventBuilder) Direct() *EventBuilder { b.direct = true; return b }

// At overrides the event timestamp (chainable).
func (b *EventBuilder) At(ts time.Time) *EventBuilder { b.timestamp = ts; return b }

// Build returns the constructed event.
func (b *EventBuilder) Build() core.InboundEvent {
	ev := core.NewEvent(b.eventType, b.roomID, b.sender)
	ev.Body = b.body
	ev.Direct = b.direct
	if !b.timestamp.IsZero() {
		ev.Timestamp = b.timestamp
	}
	return ev
}
