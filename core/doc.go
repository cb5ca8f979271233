// Package core contains the shared model types of the botmesh runtime:
// inbound protocol events, agent identities and hooks, the memory and
// conversation store contracts, the message bus contract and the typed
// error taxonomy. Implementation packages (command, router, bus, memory,
// conversation, engine) depend on core; core depends on nothing but the
// logging abstraction.
package core
