package core

// DeliveryStatus classifies the outcome of one bus delivery attempt.
type DeliveryStatus int

const (
	// Delivered means the recipient's hook was invoked and returned
	// without error.
	Delivered DeliveryStatus = iota
	// RecipientUnavailable means no agent is registered under the
	// recipient name; the delivery was dropped without retry.
	RecipientUnavailable
	// HookFailed means the recipient's hook returned an error or
	// panicked. The failure is confined to that delivery.
	HookFailed
)

// String returns the status name for logs.
func (s DeliveryStatus) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case RecipientUnavailable:
		return "recipient_unavailable"
	case HookFailed:
		return "hook_failed"
	default:
		return "unknown"
	}
}

// DeliveryResult reports the outcome of delivering one message to one
// recipient. Err is set for RecipientUnavailable and HookFailed.
type DeliveryResult struct {
	Recipient string
	Status    DeliveryStatus
	Err       error
}

// BroadcastScope selects broadcast recipients from the set of live
// agents. The sending agent is always excluded regardless of scope.
type BroadcastScope func(AgentIdentity) bool

// AllAgents matches every currently registered agent.
func AllAgents(AgentIdentity) bool { return true }

// MessageBus is the inter-agent delivery contract. Delivery is
// synchronous from the sender's point of view, at-most-once per call
// and best-effort: no retry, no queueing, no persistence. Ordering is
// FIFO per sender-to-recipient pair; ordering across senders is
// unspecified. A delivery failure is reported in the result, never
// raised into the sender's handler.
type MessageBus interface {
	SendToAgent(sender AgentIdentity, recipient string, payload any) DeliveryResult
	Broadcast(sender AgentIdentity, scope BroadcastScope, payload any) []DeliveryResult
}
