// Package botmesh provides a high-level façade over the engine and
// service abstractions (memory, conversation contexts, message bus &
// logging) enabling many independent chat-bot agents to share one
// process. Most applications interact with this package by:
//  1. Creating a Runtime via New() (optionally overriding the default
//     in-memory stores)
//  2. Registering one or more agents (command providers, event
//     subscribers, bus hook implementations)
//  3. Feeding inbound protocol events through HandleEvent or Process
//
// The façade delegates orchestration to engine.Engine while keeping
// setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply
// durable store implementations and a structured logger.
package botmesh

import (
	"github.com/botmesh-io/botmesh/core"
	"github.com/botmesh-io/botmesh/engine"
)

// Options configures the Runtime. It aliases engine.Options so callers
// only import the root package for common setups.
type Options = engine.Options

// Runtime is the high-level façade aggregating the engine and its
// services.
type Runtime struct {
	engine *engine.Engine
}

// New creates a Runtime with optional overrides. Any unset store is
// replaced with its in-memory default and an unset logger with NoOp.
func New(optFns ...func(o *Options)) *Runtime {
	return &Runtime{engine: engine.New(optFns...)}
}

// Engine exposes the underlying engine for advanced wiring.
func (r *Runtime) Engine() *engine.Engine { return r.engine }

// RegisterAgent starts a runtime instance for the agent and makes it
// reachable on the message bus.
func (r *Runtime) RegisterAgent(agent core.Agent) error {
	return r.engine.Register(agent)
}

// DeregisterAgent stops the named agent and removes it from the bus.
func (r *Runtime) DeregisterAgent(name string) {
	r.engine.Deregister(name)
}

// HandleEvent queues one inbound protocol event for the named agent.
func (r *Runtime) HandleEvent(agentName string, ev core.InboundEvent) error {
	return r.engine.HandleEvent(agentName, ev)
}

// Process queues one inbound event and waits for its outcome.
func (r *Runtime) Process(agentName string, ev core.InboundEvent) (engine.ProcessResult, error) {
	return r.engine.Process(agentName, ev)
}

// Shutdown stops all agents.
func (r *Runtime) Shutdown() { r.engine.Shutdown() }
