// Package bus implements the inter-agent messaging bus: a registry of
// live agent instances plus directed send and broadcast delivery with
// hook invocation. Delivery is at-most-once per call and best-effort;
// nothing is queued, retried or persisted.
package bus

import (
	"fmt"
	"sort"
	"sync"

	"github.com/botmesh-io/botmesh/core"
	"github.com/botmesh-io/botmesh/logging"
)

// Bus tracks the currently registered agents and delivers messages
// between them. Register/Deregister/lookup are atomic with respect to
// each other, so agents may come and go while siblings are sending.
//
// Delivery invokes the recipient's hook directly on the sender's
// goroutine and takes no agent dispatch lock, which is what keeps
// recipient-to-sender back-sends deadlock-free. FIFO ordering per
// sender-to-recipient pair follows from the sender's own serialized
// dispatch loop: each send completes before the sender's next begins.
type Bus struct {
	mu     sync.RWMutex
	agents map[string]core.Agent
	logger logging.Logger
}

// New creates an empty bus.
func New(logger logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Bus{agents: map[string]core.Agent{}, logger: logger}
}

// Register adds an agent under its identity name. Registering a name
// that is already live replaces the previous instance.
func (b *Bus) Register(agent core.Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.agents[agent.Identity().Name] = agent
}

// Deregister removes the named agent. Subsequent sends to the name
// report RecipientUnavailable.
func (b *Bus) Deregister(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.agents, name)
}

// Lookup returns the live agent registered under name.
func (b *Bus) Lookup(name string) (core.Agent, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	agent, ok := b.agents[name]
	return agent, ok
}

// Names returns the names of all live agents, sorted for determinism.
func (b *Bus) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.agents))
	for name := range b.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SendToAgent delivers payload to the named agent's ReceiveMessage
// hook. A missing recipient yields RecipientUnavailable with no retry;
// a failing hook yields HookFailed. Neither is raised into the sender.
func (b *Bus) SendToAgent(sender core.AgentIdentity, recipient string, payload any) core.DeliveryResult {
	target, ok := b.Lookup(recipient)
	if !ok {
		b.logger.Debug("send to unavailable recipient", "sender", sender.Name, "recipient", recipient)
		return core.DeliveryResult{
			Recipient: recipient,
			Status:    core.RecipientUnavailable,
			Err:       &core.RecipientUnavailableError{Recipient: recipient},
		}
	}
	return b.deliver(recipient, func() error { return target.ReceiveMessage(payload, sender) })
}

// Broadcast resolves scope against the live registry, excluding the
// sender, and delivers payload to each match's ReceiveBroadcast hook.
// Deliveries are independent: one failing hook does not block the
// others. A scope matching zero agents returns an empty slice.
func (b *Bus) Broadcast(sender core.AgentIdentity, scope core.BroadcastScope, payload any) []core.DeliveryResult {
	if scope == nil {
		scope = core.AllAgents
	}

	b.mu.RLock()
	targets := make([]core.Agent, 0, len(b.agents))
	for name, agent := range b.agents {
		if name == sender.Name {
			continue
		}
		if scope(agent.Identity()) {
			targets = append(targets, agent)
		}
	}
	b.mu.RUnlock()

	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Identity().Name < targets[j].Identity().Name
	})

	results := make([]core.DeliveryResult, 0, len(targets))
	for _, target := range targets {
		t := target
		results = append(results, b.deliver(t.Identity().Name, func() error {
			return t.ReceiveBroadcast(payload, sender)
		}))
	}
	return results
}

// deliver invokes one hook with panic confinement.
func (b *Bus) deliver(recipient string, hook func() error) core.DeliveryResult {
	err := runHook(hook)
	if err != nil {
		b.logger.Warn("delivery hook failed", "recipient", recipient, "error", err.Error())
		return core.DeliveryResult{Recipient: recipient, Status: core.HookFailed, Err: err}
	}
	return core.DeliveryResult{Recipient: recipient, Status: core.Delivered}
}

func runHook(hook func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook panic: %v", r)
		}
	}()
	return hook()
}

var _ core.MessageBus = (*Bus)(nil)
