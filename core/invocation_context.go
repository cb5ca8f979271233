package core

import (
	"context"
	"fmt"

	"github.com/botmesh-io/botmesh/logging"
)

// InvocationContext is the per-dispatch execution scope handed to
// command and event handlers. It aggregates:
//   - the ambient cancellation Context
//   - the agent identity and the raw inbound event
//   - the memory store (exposed as per-agent and global views)
//   - the conversation context store
//   - the message bus and the outbound protocol client
//
// All service accessors are nil-safe: an unconfigured collaborator
// yields an explicit error rather than a panic.
type InvocationContext struct {
	Context       context.Context
	Agent         AgentIdentity
	Event         InboundEvent
	MemoryService MemoryStore
	Conversations ConversationStore
	Bus           MessageBus
	Client        ProtocolClient
	Logger        logging.Logger
}

// Memory returns the agent's private memory view.
func (ic *InvocationContext) Memory() MemoryView {
	return NewMemoryView(ic.MemoryService, AgentNamespace(ic.Agent.Name))
}

// GlobalMemory returns the memory view shared by all agents.
func (ic *InvocationContext) GlobalMemory() MemoryView {
	return NewMemoryView(ic.MemoryService, GlobalNamespace)
}

// ConversationKey returns the (agent, user, room) key for the event
// being handled.
func (ic *InvocationContext) ConversationKey() ConversationKey {
	return ConversationKey{Agent: ic.Agent.Name, User: ic.Event.Sender, Room: ic.Event.RoomID}
}

// Conversation returns the conversation context for the current event,
// creating it on first use.
func (ic *InvocationContext) Conversation() (*ConversationContext, error) {
	if ic.Conversations == nil {
		return nil, fmt.Errorf("conversation store not configured")
	}
	return ic.Conversations.GetOrCreate(ic.ConversationKey())
}

// UpdateConversation applies the mutator to the current conversation
// context under the store's per-key serialization.
func (ic *InvocationContext) UpdateConversation(mutate func(*ConversationContext)) (*ConversationContext, error) {
	if ic.Conversations == nil {
		return nil, fmt.Errorf("conversation store not configured")
	}
	return ic.Conversations.Update(ic.ConversationKey(), mutate)
}

// SendToAgent delivers payload to the named sibling agent. The result
// reports an unavailable recipient; it never raises into the handler.
func (ic *InvocationContext) SendToAgent(recipient string, payload any) DeliveryResult {
	if ic.Bus == nil {
		return DeliveryResult{
			Recipient: recipient,
			Status:    RecipientUnavailable,
			Err:       fmt.Errorf("message bus not configured"),
		}
	}
	return ic.Bus.SendToAgent(ic.Agent, recipient, payload)
}

// Broadcast delivers payload to every live agent matched by scope,
// excluding the sender.
func (ic *InvocationContext) Broadcast(scope BroadcastScope, payload any) []DeliveryResult {
	if ic.Bus == nil {
		return nil
	}
	return ic.Bus.Broadcast(ic.Agent, scope, payload)
}

// Reply sends a message into the room the event arrived from.
func (ic *InvocationContext) Reply(body string) error {
	if ic.Client == nil {
		return fmt.Errorf("protocol client not configured")
	}
	return ic.Client.SendMessage(ic.Context, ic.Event.RoomID, body)
}

// Notify sends a notice into the room the event arrived from.
func (ic *InvocationContext) Notify(body string) error {
	if ic.Client == nil {
		return fmt.Errorf("protocol client not configured")
	}
	return ic.Client.SendNotice(ic.Context, ic.Event.RoomID, body)
}

// Log returns the invocation logger, falling back to a no-op logger
// when none was configured.
func (ic *InvocationContext) Log() logging.Logger {
	if ic.Logger == nil {
		return logging.NoOpLogger{}
	}
	return ic.Logger
}
