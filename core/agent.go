package core

// AgentIdentity identifies one live agent instance. Name is the unique
// runtime identifier used by the message bus; UserID is the protocol
// user the agent is bound to. Identities are created when an agent
// registers and are immutable for its lifetime.
type AgentIdentity struct {
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}

// Agent is the interface a bot implementation supplies to the runtime.
//
// ReceiveMessage and ReceiveBroadcast are the inbound sides of the
// message bus: the bus invokes them synchronously from the sending
// agent's goroutine, so implementations must be safe for concurrent
// invocation and must not block on their own agent's dispatch queue.
//
// Command and event registration are optional capabilities discovered
// at registration time via type assertion (see command.Provider and
// router.Subscriber).
type Agent interface {
	Identity() AgentIdentity
	ReceiveMessage(payload any, from AgentIdentity) error
	ReceiveBroadcast(payload any, from AgentIdentity) error
}

// BaseAgent is an embeddable default implementation of Agent with
// no-op message hooks. Concrete agents embed it and override whichever
// hooks they care about.
type BaseAgent struct {
	identity AgentIdentity
}

// NewBaseAgent creates a BaseAgent bound to the given name and
// protocol user id.
func NewBaseAgent(name, userID string) BaseAgent {
	return BaseAgent{identity: AgentIdentity{Name: name, UserID: userID}}
}

// Identity returns the agent's immutable identity.
func (b BaseAgent) Identity() AgentIdentity { return b.identity }

// ReceiveMessage ignores direct messages from sibling agents.
func (BaseAgent) ReceiveMessage(any, AgentIdentity) error { return nil }

// ReceiveBroadcast ignores broadcasts from sibling agents.
func (BaseAgent) ReceiveBroadcast(any, AgentIdentity) error { return nil }
