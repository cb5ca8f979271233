// Package engine hosts the agent runtime: it owns the live-agent
// registry and message bus, builds each agent's command registry and
// event router at registration time, and runs one mailbox goroutine
// per agent so inbound event handling is serialized within an agent
// while agents execute concurrently with each other.
package engine
