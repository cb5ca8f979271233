package command

import (
	"fmt"
	"strings"

	"github.com/botmesh-io/botmesh/core"
)

// HandlerFunc is the signature of a command handler. Args exposes the
// positionally bound arguments; type coercion happens when the handler
// destructures an argument through a typed getter. Returning nil after
// an early bail-out (degenerate input) is a normal, non-error outcome.
type HandlerFunc func(ctx *core.InvocationContext, args Args) error

// ArgSpec describes one declared argument. Optional arguments take
// Default when no token is supplied. A Variadic argument may only
// appear last and collects all remaining words into one sequence.
type ArgSpec struct {
	Name     string
	Optional bool
	Default  string
	Variadic bool
}

// ScopeKind tags the scope variant. The dispatcher switches on the
// kind explicitly instead of duck-typing on callability.
type ScopeKind int

const (
	// ScopeAlways allows the command in any room.
	ScopeAlways ScopeKind = iota
	// ScopeDirectOnly allows the command only in direct-message rooms.
	ScopeDirectOnly
	// ScopePredicate gates the command on a caller-supplied predicate
	// evaluated against the invocation context.
	ScopePredicate
)

// Scope is the tagged gating variant for a command:
// Always | DirectOnly | Predicate(fn).
type Scope struct {
	kind      ScopeKind
	predicate func(*core.InvocationContext) bool
}

// Always returns the scope that admits every invocation.
func Always() Scope { return Scope{kind: ScopeAlways} }

// DirectOnly returns the scope that admits only direct-message rooms.
func DirectOnly() Scope { return Scope{kind: ScopeDirectOnly} }

// Predicate returns a scope gated on fn.
func Predicate(fn func(*core.InvocationContext) bool) Scope {
	return Scope{kind: ScopePredicate, predicate: fn}
}

// Kind returns the scope's variant tag.
func (s Scope) Kind() ScopeKind { return s.kind }

// Allows evaluates the scope against the invocation context.
func (s Scope) Allows(ctx *core.InvocationContext) bool {
	switch s.kind {
	case ScopeDirectOnly:
		return ctx.Event.Direct
	case ScopePredicate:
		return s.predicate != nil && s.predicate(ctx)
	default:
		return true
	}
}

// Spec declares one command: its name (unique within an agent's
// registry), a human description for help listings, the ordered
// argument descriptors, the scope and the handler.
type Spec struct {
	Name        string
	Description string
	Args        []ArgSpec
	Scope       Scope
	Handler     HandlerFunc
}

// Validate checks the spec shape: a non-empty single-token name, a
// handler, optional arguments only following other optional arguments
// (the language rule that a required parameter cannot follow a
// defaulted one), and a variadic argument only in last position.
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("command name must not be empty")
	}
	if strings.ContainsAny(s.Name, " \t\n") {
		return fmt.Errorf("command name %q must be a single token", s.Name)
	}
	if s.Handler == nil {
		return fmt.Errorf("command %q: handler must not be nil", s.Name)
	}
	if s.Scope.kind == ScopePredicate && s.Scope.predicate == nil {
		return fmt.Errorf("command %q: predicate scope requires a predicate", s.Name)
	}
	sawOptional := false
	for i, arg := range s.Args {
		if arg.Name == "" {
			return fmt.Errorf("command %q: argument %d has no name", s.Name, i)
		}
		if arg.Variadic && i != len(s.Args)-1 {
			return fmt.Errorf("command %q: variadic argument %q must be last", s.Name, arg.Name)
		}
		if sawOptional && !arg.Optional && !arg.Variadic {
			return fmt.Errorf("command %q: required argument %q follows an optional argument", s.Name, arg.Name)
		}
		if arg.Optional {
			sawOptional = true
		}
	}
	return nil
}

// variadic reports whether the last declared argument is variadic.
func (s Spec) variadic() bool {
	return len(s.Args) > 0 && s.Args[len(s.Args)-1].Variadic
}
