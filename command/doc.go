// Package command implements the user-facing command surface of an
// agent: a declarative registry of command specs and the dispatcher
// that turns an inbound chat message into a validated handler
// invocation. Commands are registered at agent construction time by
// explicit Register calls; there is no implicit class-level state.
package command
