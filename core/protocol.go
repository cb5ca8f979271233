package core

import "context"

// ProtocolClient is the outbound side of the chat protocol, supplied by
// the embedding application. The core never implements the wire
// protocol; handlers reach the client through the invocation context to
// emit messages and notices back into rooms.
type ProtocolClient interface {
	SendMessage(ctx context.Context, roomID, body string) error
	SendNotice(ctx context.Context, roomID, body string) error
}
