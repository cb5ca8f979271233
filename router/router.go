// Package router implements the generic protocol-event router: agents
// subscribe handlers to event-type strings and every handler for an
// inbound event's type is invoked in subscription order. Handlers are
// independent; one failing never prevents the rest from running.
package router

import (
	"fmt"
	"sync"

	"github.com/botmesh-io/botmesh/core"
	"github.com/botmesh-io/botmesh/logging"
)

// HandlerFunc is the signature of an event handler.
type HandlerFunc func(ctx *core.InvocationContext) error

// Failure records one handler that errored or panicked while routing
// an event. Index is the handler's subscription position for the type.
type Failure struct {
	EventType string
	Index     int
	Err       error
}

// Result reports one routing pass: how many handlers ran and which of
// them failed.
type Result struct {
	Handled  int
	Failures []Failure
}

// Router maps event-type strings to ordered handler lists.
type Router struct {
	mu     sync.RWMutex
	subs   map[string][]HandlerFunc
	logger logging.Logger
}

// New creates an empty router.
func New(logger logging.Logger) *Router {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Router{subs: map[string][]HandlerFunc{}, logger: logger}
}

// Subscribe appends a handler for the event type. Multiple handlers
// per type are allowed and run in subscription order.
func (r *Router) Subscribe(eventType string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[eventType] = append(r.subs[eventType], h)
}

// Subscriptions returns the number of handlers for the event type.
func (r *Router) Subscriptions(eventType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[eventType])
}

// Route offers the event carried by ctx to every handler subscribed to
// its type. Each failure is captured, logged with agent and event type,
// and reported in the result; it never crashes the agent or stops the
// remaining handlers.
func (r *Router) Route(ctx *core.InvocationContext) Result {
	r.mu.RLock()
	handlers := r.subs[ctx.Event.Type]
	r.mu.RUnlock()

	res := Result{}
	for i, h := range handlers {
		if err := runHandler(h, ctx); err != nil {
			r.logger.Error("event handler failed",
				"agent", ctx.Agent.Name,
				"event_type", ctx.Event.Type,
				"handler", i,
				"error", err.Error(),
			)
			res.Failures = append(res.Failures, Failure{EventType: ctx.Event.Type, Index: i, Err: err})
		}
		res.Handled++
	}
	return res
}

func runHandler(h HandlerFunc, ctx *core.InvocationContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event handler panic: %v", r)
		}
	}()
	return h(ctx)
}

// Subscriber is the optional capability an agent implements to
// subscribe event handlers. The engine discovers it by type assertion
// at registration time.
type Subscriber interface {
	SubscribeEvents(r *Router)
}
