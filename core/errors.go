package core

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAgentNotFound is returned when an operation names an agent that
	// is not registered with the runtime.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrScopeDenied is returned when a command's scope predicate
	// evaluates false for the invocation.
	ErrScopeDenied = errors.New("command scope denied")
)

// ParseError reports malformed command input that could not be
// tokenized into a command name.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse command from %q", e.Input)
}

// UnknownCommandError reports a prefixed message whose command name is
// not registered. Whether to tell the user is the agent's decision; the
// dispatcher only reports the outcome.
type UnknownCommandError struct {
	Name string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Name)
}

// MissingArgumentError reports a required argument left unfilled after
// positional binding.
type MissingArgumentError struct {
	Command  string
	Argument string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("command %q: missing required argument %q", e.Command, e.Argument)
}

// InvalidArgumentError reports a token that failed type coercion when a
// handler destructured it as a specific type. Token carries the
// offending raw input so the agent can echo it back.
type InvalidArgumentError struct {
	Argument string
	Token    string
	Want     string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("argument %q: %q must be %s", e.Argument, e.Token, e.Want)
}

// HandlerTimeoutError reports a handler that exceeded the configured
// per-handler timeout. The runtime abandons the handler and continues
// with the agent's next event.
type HandlerTimeoutError struct {
	Agent   string
	Name    string // command or event type
	Timeout time.Duration
}

func (e *HandlerTimeoutError) Error() string {
	return fmt.Sprintf("agent %q: handler for %q exceeded %s", e.Agent, e.Name, e.Timeout)
}

// RecipientUnavailableError reports a bus delivery whose recipient is
// not currently registered. The delivery is dropped; the bus never
// retries.
type RecipientUnavailableError struct {
	Recipient string
}

func (e *RecipientUnavailableError) Error() string {
	return fmt.Sprintf("recipient %q is not registered", e.Recipient)
}

// StorageError wraps a failure from the durability backend of a memory
// or conversation store. It is propagated to the calling handler, never
// swallowed or retried by the core.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// NewStorageError wraps err with the failing operation name. Returns
// nil when err is nil so call sites can wrap unconditionally.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
