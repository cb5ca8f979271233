// Package logging provides a tiny abstraction over slog so runtime code
// can depend on a minimal Logger interface while embedders plug in any
// structured logger. It also offers a RuntimeLogger with contextual
// helpers (agent, component) and domain-specific helpers for command
// dispatch and bus delivery.
package logging
