package command

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/botmesh-io/botmesh/core"
	"github.com/botmesh-io/botmesh/logging"
)

// Outcome classifies the result of one dispatch attempt. Exactly one
// dispatch attempt occurs per inbound message; transport-level
// re-delivery is the transport's problem, not the dispatcher's.
type Outcome int

const (
	// OutcomeNotACommand means the message body does not start with the
	// command prefix; the event router owns it.
	OutcomeNotACommand Outcome = iota
	// OutcomeInvoked means the bound handler ran and returned nil.
	OutcomeInvoked
	// OutcomeUnknownCommand means no spec is registered under the
	// parsed name. Whether to notify the user is the agent's choice.
	OutcomeUnknownCommand
	// OutcomeScopeDenied means the scope predicate evaluated false.
	OutcomeScopeDenied
	// OutcomeMissingArgument means a required argument was unfilled.
	OutcomeMissingArgument
	// OutcomeInvalidArgument means a typed destructure rejected a token.
	OutcomeInvalidArgument
	// OutcomeHandlerError means the handler returned a non-argument error.
	OutcomeHandlerError
	// OutcomeHandlerTimeout means the handler exceeded the runtime's
	// configured per-handler timeout. Set by the engine, not here.
	OutcomeHandlerTimeout
)

// String returns the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeNotACommand:
		return "not_a_command"
	case OutcomeInvoked:
		return "invoked"
	case OutcomeUnknownCommand:
		return "unknown_command"
	case OutcomeScopeDenied:
		return "scope_denied"
	case OutcomeMissingArgument:
		return "missing_argument"
	case OutcomeInvalidArgument:
		return "invalid_argument"
	case OutcomeHandlerError:
		return "handler_error"
	case OutcomeHandlerTimeout:
		return "handler_timeout"
	default:
		return "unknown"
	}
}

// Result reports one dispatch attempt. Err is set for the error
// outcomes and carries the typed error from the core taxonomy.
type Result struct {
	Outcome Outcome
	Command string
	Err     error
}

// Dispatcher matches inbound messages against a registry, validates
// and binds arguments, enforces scope and invokes the bound handler.
type Dispatcher struct {
	registry *Registry
	prefix   string
	logger   logging.Logger
}

// NewDispatcher creates a dispatcher for the given registry and
// command prefix (for example "!").
func NewDispatcher(registry *Registry, prefix string, logger logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Dispatcher{registry: registry, prefix: prefix, logger: logger}
}

// Prefix returns the configured command prefix.
func (d *Dispatcher) Prefix() string { return d.prefix }

// Dispatch runs the dispatch algorithm against the event carried by
// ctx. Outcomes are explicit results; a handler failure is confined to
// this invocation and reported, never raised to the caller.
func (d *Dispatcher) Dispatch(ctx *core.InvocationContext) Result {
	body := ctx.Event.Body
	if d.prefix == "" || !strings.HasPrefix(body, d.prefix) {
		return Result{Outcome: OutcomeNotACommand}
	}

	tokens := strings.Fields(strings.TrimPrefix(body, d.prefix))
	if len(tokens) == 0 {
		return Result{Outcome: OutcomeNotACommand, Err: &core.ParseError{Input: body}}
	}
	name := tokens[0]

	spec, ok := d.registry.Lookup(name)
	if !ok {
		return Result{Outcome: OutcomeUnknownCommand, Command: name, Err: &core.UnknownCommandError{Name: name}}
	}

	if !spec.Scope.Allows(ctx) {
		d.logger.Debug("command denied by scope", "agent", ctx.Agent.Name, "command", name)
		return Result{Outcome: OutcomeScopeDenied, Command: name, Err: core.ErrScopeDenied}
	}

	args, err := bindArgs(spec, tokens[1:])
	if err != nil {
		return Result{Outcome: OutcomeMissingArgument, Command: name, Err: err}
	}

	start := time.Now()
	err = invoke(spec, ctx, args)
	dur := time.Since(start)

	switch {
	case err == nil:
		d.logger.Debug("command invoked", "agent", ctx.Agent.Name, "command", name, "duration", dur)
		return Result{Outcome: OutcomeInvoked, Command: name}
	case isInvalidArgument(err):
		d.logger.Warn("command rejected argument", "agent", ctx.Agent.Name, "command", name, "error", err.Error())
		return Result{Outcome: OutcomeInvalidArgument, Command: name, Err: err}
	default:
		d.logger.Error("command handler failed", "agent", ctx.Agent.Name, "command", name, "error", err.Error())
		return Result{Outcome: OutcomeHandlerError, Command: name, Err: err}
	}
}

// invoke runs the handler with panic confinement so a crashing handler
// degrades to a handler error instead of taking the agent down.
func invoke(spec Spec, ctx *core.InvocationContext, args Args) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %q: handler panic: %v", spec.Name, r)
		}
	}()
	return spec.Handler(ctx, args)
}

func isInvalidArgument(err error) bool {
	var invalid *core.InvalidArgumentError
	return errors.As(err, &invalid)
}
