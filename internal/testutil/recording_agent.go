package testutil

import (
	"sync"

	"github.com/botmesh-io/botmesh/core"
)

// Received is one captured bus delivery.
type Received struct {
	Payload any
	From    core.AgentIdentity
}

// RecordingAgent is a core.Agent capturing every bus delivery it
// receives. Hooks are safe for concurrent invocation. FailWith, when
// set, is returned from both hooks after recording.
type RecordingAgent struct {
	core.BaseAgent

	FailWith error
	Panic    bool

	mu         sync.Mutex
	messages   []Received
	broadcasts []Received
}

// NewRecordingAgent creates a recording agent with the given name.
func NewRecordingAgent(name string) *RecordingAgent {
	return &RecordingAgent{BaseAgent: core.NewBaseAgent(name, "@"+name+":example.org")}
}

// ReceiveMessage records a directed delivery.
func (a *RecordingAgent) ReceiveMessage(payload any, from core.AgentIdentity) error {
	a.mu.Lock()
	a.messages = append(a.messages, Received{Payload: payload, From: from})
	a.mu.Unlock()
	if a.Panic {
		panic("recording agent forced panic")
	}
	return a.FailWith
}

// ReceiveBroadcast records a broadcast delivery.
func (a *RecordingAgent) ReceiveBroadcast(payload any, from core.AgentIdentity) error {
	a.mu.Lock()
	a.broadcasts = append(a.broadcasts, Received{Payload: payload, From: from})
	a.mu.Unlock()
	if a.Panic {
		panic("recording agent forced panic")
	}
	return a.FailWith
}

// Messages returns a copy of the captured directed deliveries.
func (a *RecordingAgent) Messages() []Received {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Received, len(a.messages))
	copy(out, a.messages)
	return out
}

// Broadcasts returns a copy of the captured broadcast deliveries.
func (a *RecordingAgent) Broadcasts() []Received {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Received, len(a.broadcasts))
	copy(out, a.broadcasts)
	return out
}
