package engine

import (
	"context"
	"strings"
	"time"

	"github.com/botmesh-io/botmesh/command"
	"github.com/botmesh-io/botmesh/core"
	"github.com/botmesh-io/botmesh/router"
)

// ProcessResult reports everything that happened for one inbound
// event: the routing pass over subscribed event handlers and, for
// message events, the command dispatch attempt.
type ProcessResult struct {
	Route    router.Result
	Dispatch command.Result
}

// envelope is one mailbox entry. reply is nil for fire-and-forget
// delivery via HandleEvent.
type envelope struct {
	event core.InboundEvent
	reply chan ProcessResult
}

// instance is the runtime state of one registered agent: its command
// registry, router and dispatcher plus the mailbox goroutine that
// serializes inbound handling. A handler therefore never observes
// another handler's partial mutation of the same agent's state.
type instance struct {
	eng        *Engine
	agent      core.Agent
	registry   *command.Registry
	router     *router.Router
	dispatcher *command.Dispatcher

	mailbox chan envelope
	quit    chan struct{}
	done    chan struct{}
}

func newInstance(eng *Engine, agent core.Agent, registry *command.Registry, rt *router.Router, prefix string) *instance {
	return &instance{
		eng:        eng,
		agent:      agent,
		registry:   registry,
		router:     rt,
		dispatcher: command.NewDispatcher(registry, prefix, eng.opts.Logger),
		mailbox:    make(chan envelope, eng.opts.Config.MailboxSize),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (a *instance) enqueue(env envelope) error {
	select {
	case a.mailbox <- env:
		return nil
	case <-a.quit:
		return core.ErrAgentNotFound
	}
}

func (a *instance) stop() {
	close(a.quit)
	<-a.done
}

// loop drains the mailbox one event at a time. One process call
// completes, including all synchronous memory and conversation
// mutations it performs, before the next event for this agent begins.
func (a *instance) loop() {
	defer close(a.done)
	for {
		select {
		case env := <-a.mailbox:
			res := a.process(env.event)
			if env.reply != nil {
				env.reply <- res
			}
		case <-a.quit:
			return
		}
	}
}

// process handles one inbound event: record conversation activity,
// offer the event to the router's non-command handlers, then let the
// dispatcher take over for prefixed message bodies.
func (a *instance) process(ev core.InboundEvent) ProcessResult {
	identity := a.agent.Identity()
	ictx := &core.InvocationContext{
		Context:       context.Background(),
		Agent:         identity,
		Event:         ev,
		MemoryService: a.eng.opts.MemoryStore,
		Conversations: a.eng.opts.ConversationStore,
		Bus:           a.eng.bus,
		Client:        a.eng.opts.ProtocolClient,
		Logger:        a.eng.opts.Logger,
	}

	// Any inbound message counts toward conversation activity, command
	// or not, before handlers run.
	if ev.IsMessage() && ev.Sender != "" {
		err := a.eng.opts.ConversationStore.AppendMessage(ictx.ConversationKey(), core.Message{
			Sender:    ev.Sender,
			Body:      ev.Body,
			Timestamp: ev.Timestamp,
		})
		if err != nil {
			a.eng.opts.Logger.Error("conversation activity update failed",
				"agent", identity.Name, "room", ev.RoomID, "error", err.Error())
		}
	}

	var res ProcessResult
	timeout := a.eng.opts.Config.HandlerTimeout

	route, ok := runBounded(timeout, func() router.Result { return a.router.Route(ictx) })
	if !ok {
		err := &core.HandlerTimeoutError{Agent: identity.Name, Name: ev.Type, Timeout: timeout}
		a.eng.opts.Logger.Error("event handlers timed out",
			"agent", identity.Name, "event_type", ev.Type, "timeout", timeout)
		route = router.Result{Failures: []router.Failure{{EventType: ev.Type, Err: err}}}
	}
	res.Route = route

	if !ev.IsMessage() {
		return res
	}

	dispatch, ok := runBounded(timeout, func() command.Result { return a.dispatcher.Dispatch(ictx) })
	if !ok {
		name, _ := commandName(a.dispatcher.Prefix(), ev.Body)
		err := &core.HandlerTimeoutError{Agent: identity.Name, Name: name, Timeout: timeout}
		a.eng.opts.Logger.Error("command handler timed out",
			"agent", identity.Name, "command", name, "timeout", timeout)
		dispatch = command.Result{Outcome: command.OutcomeHandlerTimeout, Command: name, Err: err}
	}
	res.Dispatch = dispatch
	return res
}

// commandName extracts the command token from a prefixed body so a
// timeout can name what hung.
func commandName(prefix, body string) (string, bool) {
	if prefix == "" || !strings.HasPrefix(body, prefix) {
		return "", false
	}
	fields := strings.Fields(strings.TrimPrefix(body, prefix))
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}

// runBounded runs fn, bounded by timeout when positive. The second
// return is false when the bound fired; fn's goroutine then finishes
// (or hangs) unobserved.
func runBounded[T any](timeout time.Duration, fn func() T) (T, bool) {
	if timeout <= 0 {
		return fn(), true
	}
	out := make(chan T, 1)
	go func() { out <- fn() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v := <-out:
		return v, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}
