package command

import (
	"strconv"

	"github.com/botmesh-io/botmesh/core"
)

// Args holds the positionally bound arguments of one invocation.
// Values are kept as raw tokens; coercion to a specific type happens
// only when the handler destructures through Int or Float, and a
// mismatch yields a *core.InvalidArgumentError carrying the offending
// token. The dispatcher does not guess intent beyond that.
type Args struct {
	values   map[string]string
	provided map[string]bool
	rest     []string
}

func bindArgs(spec Spec, tokens []string) (Args, error) {
	args := Args{values: map[string]string{}, provided: map[string]bool{}}
	fixed := spec.Args
	if spec.variadic() {
		fixed = spec.Args[:len(spec.Args)-1]
	}
	for i, arg := range fixed {
		if i < len(tokens) {
			args.values[arg.Name] = tokens[i]
			args.provided[arg.Name] = true
			continue
		}
		if !arg.Optional {
			return Args{}, &core.MissingArgumentError{Command: spec.Name, Argument: arg.Name}
		}
		args.values[arg.Name] = arg.Default
	}
	if spec.variadic() && len(tokens) > len(fixed) {
		args.rest = tokens[len(fixed):]
	}
	return args, nil
}

// String returns the raw token bound to name (or the declared default).
func (a Args) String(name string) string { return a.values[name] }

// Provided reports whether a token was supplied for name, as opposed
// to the declared default being filled in.
func (a Args) Provided(name string) bool { return a.provided[name] }

// Int destructures the argument as an integer.
func (a Args) Int(name string) (int, error) {
	raw := a.values[name]
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &core.InvalidArgumentError{Argument: name, Token: raw, Want: "an integer"}
	}
	return n, nil
}

// Float destructures the argument as a floating point number.
func (a Args) Float(name string) (float64, error) {
	raw := a.values[name]
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &core.InvalidArgumentError{Argument: name, Token: raw, Want: "a number"}
	}
	return f, nil
}

// Rest returns the words collected by a trailing variadic argument, in
// original order. It is empty when no extra words were supplied.
func (a Args) Rest() []string { return a.rest }
