package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/botmesh-io/botmesh/bus"
	"github.com/botmesh-io/botmesh/command"
	"github.com/botmesh-io/botmesh/conversation"
	"github.com/botmesh-io/botmesh/core"
	"github.com/botmesh-io/botmesh/logging"
	"github.com/botmesh-io/botmesh/memory"
	"github.com/botmesh-io/botmesh/router"
)

// Config defines tuning parameters for the runtime.
type Config struct {
	// CommandPrefix is the default prefix marking a message body as a
	// command (agents can override it, see CommandPrefixer).
	CommandPrefix string

	// MailboxSize is the buffer size of each agent's inbound event
	// queue. A full mailbox applies backpressure to the transport.
	MailboxSize int

	// HandlerTimeout bounds one handler invocation. Zero disables the
	// bound. When it fires the in-flight handler is abandoned (its
	// goroutine is leaked deliberately; no mid-flight cancellation)
	// and the agent's queue continues with the next event.
	HandlerTimeout time.Duration
}

// DefaultConfig provides defaults suitable for development and tests.
var DefaultConfig = Config{
	CommandPrefix: "!",
	MailboxSize:   64,
}

// Options configures an Engine. Unset stores default to the in-memory
// implementations; an unset logger defaults to NoOp.
type Options struct {
	Config            Config
	MemoryStore       core.MemoryStore
	ConversationStore core.ConversationStore
	ProtocolClient    core.ProtocolClient
	Logger            logging.Logger
}

// CommandPrefixer is the optional capability an agent implements to
// override the runtime's default command prefix for its own messages.
type CommandPrefixer interface {
	CommandPrefix() string
}

// Engine is the shared runtime for all agents in the process.
type Engine struct {
	opts Options
	bus  *bus.Bus

	mu     sync.Mutex
	agents map[string]*instance
}

// New creates an Engine, applying option mutators over the defaults.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{Config: DefaultConfig}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config.CommandPrefix == "" {
		opts.Config.CommandPrefix = DefaultConfig.CommandPrefix
	}
	if opts.Config.MailboxSize <= 0 {
		opts.Config.MailboxSize = DefaultConfig.MailboxSize
	}
	if opts.MemoryStore == nil {
		opts.MemoryStore = memory.NewInMemoryStore()
	}
	if opts.ConversationStore == nil {
		opts.ConversationStore = conversation.NewInMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Engine{opts: opts, bus: bus.New(opts.Logger), agents: map[string]*instance{}}
}

// Bus exposes the message bus (for transports and tests).
func (e *Engine) Bus() *bus.Bus { return e.bus }

// Register starts a runtime instance for the agent: its command
// registry and event router are built here (discovering the optional
// command.Provider and router.Subscriber capabilities), its identity
// is added to the bus registry, and its mailbox goroutine starts.
// Registering a name that is already live replaces the old instance.
func (e *Engine) Register(agent core.Agent) error {
	identity := agent.Identity()
	if identity.Name == "" {
		return fmt.Errorf("agent name must not be empty")
	}

	registry := command.NewRegistry()
	if provider, ok := agent.(command.Provider); ok {
		provider.RegisterCommands(registry)
	}
	rt := router.New(e.opts.Logger)
	if subscriber, ok := agent.(router.Subscriber); ok {
		subscriber.SubscribeEvents(rt)
	}

	prefix := e.opts.Config.CommandPrefix
	if p, ok := agent.(CommandPrefixer); ok && p.CommandPrefix() != "" {
		prefix = p.CommandPrefix()
	}

	inst := newInstance(e, agent, registry, rt, prefix)

	e.mu.Lock()
	old := e.agents[identity.Name]
	e.agents[identity.Name] = inst
	e.mu.Unlock()
	if old != nil {
		old.stop()
	}

	e.bus.Register(agent)
	go inst.loop()

	e.opts.Logger.Info("agent registered",
		"agent", identity.Name,
		"user_id", identity.UserID,
		"commands", len(registry.All()),
	)
	return nil
}

// Deregister stops the named agent's mailbox loop and removes it from
// the bus registry. Pending mailbox events are dropped; subsequent bus
// sends to the name report RecipientUnavailable.
func (e *Engine) Deregister(name string) {
	e.mu.Lock()
	inst := e.agents[name]
	delete(e.agents, name)
	e.mu.Unlock()

	e.bus.Deregister(name)
	if inst != nil {
		inst.stop()
		e.opts.Logger.Info("agent deregistered", "agent", name)
	}
}

// HandleEvent queues one inbound protocol event for the named agent.
// It returns once the event is accepted into the agent's mailbox;
// processing is asynchronous and serialized with the agent's other
// events. De-duplicating transport re-deliveries is the transport's
// responsibility: every call here is one dispatch attempt.
func (e *Engine) HandleEvent(agentName string, ev core.InboundEvent) error {
	inst, err := e.instance(agentName)
	if err != nil {
		return err
	}
	return inst.enqueue(envelope{event: ev})
}

// Process queues one inbound event and waits for its outcome. Used by
// synchronous transports and tests; serialization with the agent's
// other events is identical to HandleEvent.
func (e *Engine) Process(agentName string, ev core.InboundEvent) (ProcessResult, error) {
	inst, err := e.instance(agentName)
	if err != nil {
		return ProcessResult{}, err
	}
	reply := make(chan ProcessResult, 1)
	if err := inst.enqueue(envelope{event: ev, reply: reply}); err != nil {
		return ProcessResult{}, err
	}
	select {
	case res := <-reply:
		return res, nil
	case <-inst.quit:
		return ProcessResult{}, fmt.Errorf("agent %q: %w", agentName, core.ErrAgentNotFound)
	}
}

// Shutdown stops every agent instance and clears the bus registry.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	agents := e.agents
	e.agents = map[string]*instance{}
	e.mu.Unlock()

	for name, inst := range agents {
		e.bus.Deregister(name)
		inst.stop()
	}
}

func (e *Engine) instance(name string) (*instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, ok := e.agents[name]
	if !ok {
		return nil, fmt.Errorf("agent %q: %w", name, core.ErrAgentNotFound)
	}
	return inst, nil
}
