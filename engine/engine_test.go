package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botmesh-io/botmesh/command"
	"github.com/botmesh-io/botmesh/core"
	"github.com/botmesh-io/botmesh/internal/testutil"
	"github.com/botmesh-io/botmesh/router"
)

// testBot exercises every optional capability: commands, event
// subscriptions and bus hooks.
type testBot struct {
	core.BaseAgent

	mu       sync.Mutex
	pings    int
	joins    []string
	received []any
	sleep    time.Duration
}

func newTestBot(name string) *testBot {
	return &testBot{BaseAgent: core.NewBaseAgent(name, "@"+name+":example.org")}
}

func (b *testBot) RegisterCommands(reg *command.Registry) {
	_ = reg.Register(command.Spec{
		Name:        "ping",
		Description: "bump the ping counter",
		Handler: func(ctx *core.InvocationContext, args command.Args) error {
			if b.sleep > 0 {
				time.Sleep(b.sleep)
			}
			b.mu.Lock()
			b.pings++
			b.mu.Unlock()
			return nil
		},
	})
	_ = reg.Register(command.Spec{
		Name: "relay",
		Args: []command.ArgSpec{{Name: "target"}, {Name: "words", Variadic: true}},
		Handler: func(ctx *core.InvocationContext, args command.Args) error {
			res := ctx.SendToAgent(args.String("target"), args.Rest())
			if res.Status == core.RecipientUnavailable {
				return res.Err
			}
			return nil
		},
	})
	_ = reg.Register(command.Spec{
		Name: "hits",
		Handler: func(ctx *core.InvocationContext, args command.Args) error {
			_, err := ctx.GlobalMemory().Increment("hits", 1)
			return err
		},
	})
}

func (b *testBot) SubscribeEvents(r *router.Router) {
	r.Subscribe(core.EventMemberJoin, func(ctx *core.InvocationContext) error {
		b.mu.Lock()
		b.joins = append(b.joins, ctx.Event.Sender)
		b.mu.Unlock()
		return nil
	})
}

func (b *testBot) ReceiveMessage(payload any, from core.AgentIdentity) error {
	b.mu.Lock()
	b.received = append(b.received, payload)
	b.mu.Unlock()
	return nil
}

func (b *testBot) pingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pings
}

func TestProcessCommandEndToEnd(t *testing.T) {
	e := New()
	bot := newTestBot("bot")
	require.NoError(t, e.Register(bot))

	res, err := e.Process("bot", testutil.NewEventBuilder().Body("!ping").Build())
	require.NoError(t, err)
	assert.Equal(t, command.OutcomeInvoked, res.Dispatch.Outcome)
	assert.Equal(t, 1, bot.pingCount())
}

func TestProcessRecordsConversationActivity(t *testing.T) {
	e := New()
	bot := newTestBot("bot")
	require.NoError(t, e.Register(bot))

	// A plain chat message is not a command but still counts toward
	// conversation activity.
	ev := testutil.NewEventBuilder().Body("just chatting").Build()
	res, err := e.Process("bot", ev)
	require.NoError(t, err)
	assert.Equal(t, command.OutcomeNotACommand, res.Dispatch.Outcome)

	ctx, err := e.opts.ConversationStore.GetOrCreate(core.ConversationKey{
		Agent: "bot", User: ev.Sender, Room: ev.RoomID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ctx.MessageCount)
	require.Len(t, ctx.History, 1)
	assert.Equal(t, "just chatting", ctx.History[0].Body)
}

func TestProcessRoutesNonMessageEvents(t *testing.T) {
	e := New()
	bot := newTestBot("bot")
	require.NoError(t, e.Register(bot))

	res, err := e.Process("bot", testutil.NewEventBuilder().Type(core.EventMemberJoin).Sender("@new:example.org").Build())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Route.Handled)
	assert.Equal(t, []string{"@new:example.org"}, bot.joins)
	// Non-message events never reach the dispatcher.
	assert.Equal(t, command.OutcomeNotACommand, res.Dispatch.Outcome)
}

func TestHandleEventSerializesPerAgent(t *testing.T) {
	e := New()
	bot := newTestBot("bot")
	require.NoError(t, e.Register(bot))

	const events = 50
	for i := 0; i < events; i++ {
		require.NoError(t, e.HandleEvent("bot", testutil.NewEventBuilder().Body("!ping").Build()))
	}
	// Process goes through the same mailbox, so its reply means all
	// prior events completed.
	_, err := e.Process("bot", testutil.NewEventBuilder().Body("drain").Build())
	require.NoError(t, err)
	assert.Equal(t, events, bot.pingCount())
}

func TestHandleEventUnknownAgent(t *testing.T) {
	e := New()
	err := e.HandleEvent("ghost", testutil.NewEventBuilder().Body("!ping").Build())
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
}

func TestInterAgentSendViaCommand(t *testing.T) {
	e := New()
	alpha := newTestBot("alpha")
	beta := newTestBot("beta")
	require.NoError(t, e.Register(alpha))
	require.NoError(t, e.Register(beta))

	res, err := e.Process("alpha", testutil.NewEventBuilder().Body("!relay beta hello there").Build())
	require.NoError(t, err)
	assert.Equal(t, command.OutcomeInvoked, res.Dispatch.Outcome)
	require.Len(t, beta.received, 1)
	assert.Equal(t, []string{"hello", "there"}, beta.received[0])
}

func TestSendToDeregisteredAgent(t *testing.T) {
	e := New()
	alpha := newTestBot("alpha")
	beta := newTestBot("beta")
	require.NoError(t, e.Register(alpha))
	require.NoError(t, e.Register(beta))
	e.Deregister("beta")

	res, err := e.Process("alpha", testutil.NewEventBuilder().Body("!relay beta hi").Build())
	require.NoError(t, err)
	// The relay handler surfaces the unavailable recipient as its own
	// error; the agent keeps running.
	assert.Equal(t, command.OutcomeHandlerError, res.Dispatch.Outcome)
	var unavailable *core.RecipientUnavailableError
	assert.ErrorAs(t, res.Dispatch.Err, &unavailable)

	res, err = e.Process("alpha", testutil.NewEventBuilder().Body("!ping").Build())
	require.NoError(t, err)
	assert.Equal(t, command.OutcomeInvoked, res.Dispatch.Outcome)
}

func TestSharedGlobalMemoryAcrossAgents(t *testing.T) {
	e := New()
	alpha := newTestBot("alpha")
	beta := newTestBot("beta")
	require.NoError(t, e.Register(alpha))
	require.NoError(t, e.Register(beta))

	var wg sync.WaitGroup
	for _, name := range []string{"alpha", "beta"} {
		name := name
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_, err := e.Process(name, testutil.NewEventBuilder().Body("!hits").Build())
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	v, ok, err := e.opts.MemoryStore.Get(core.GlobalNamespace, "hits")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(40), v)
}

func TestHandlerTimeout(t *testing.T) {
	e := New(func(o *Options) {
		o.Config.HandlerTimeout = 20 * time.Millisecond
	})
	bot := newTestBot("bot")
	bot.sleep = 500 * time.Millisecond
	require.NoError(t, e.Register(bot))

	res, err := e.Process("bot", testutil.NewEventBuilder().Body("!ping").Build())
	require.NoError(t, err)
	assert.Equal(t, command.OutcomeHandlerTimeout, res.Dispatch.Outcome)
	assert.Equal(t, "ping", res.Dispatch.Command)
	var timeout *core.HandlerTimeoutError
	assert.ErrorAs(t, res.Dispatch.Err, &timeout)

	// The agent's queue continues after the timeout fires.
	bot.sleep = 0
	res, err = e.Process("bot", testutil.NewEventBuilder().Body("!ping").Build())
	require.NoError(t, err)
	assert.Equal(t, command.OutcomeInvoked, res.Dispatch.Outcome)
}

type prefixBot struct{ *testBot }

func (prefixBot) CommandPrefix() string { return "~" }

func TestAgentPrefixOverride(t *testing.T) {
	e := New()
	bot := prefixBot{newTestBot("bot")}
	require.NoError(t, e.Register(bot))

	res, err := e.Process("bot", testutil.NewEventBuilder().Body("~ping").Build())
	require.NoError(t, err)
	assert.Equal(t, command.OutcomeInvoked, res.Dispatch.Outcome)

	res, err = e.Process("bot", testutil.NewEventBuilder().Body("!ping").Build())
	require.NoError(t, err)
	assert.Equal(t, command.OutcomeNotACommand, res.Dispatch.Outcome)
}

func TestRegisterReplacesLiveAgent(t *testing.T) {
	e := New()
	first := newTestBot("bot")
	require.NoError(t, e.Register(first))
	second := newTestBot("bot")
	require.NoError(t, e.Register(second))

	_, err := e.Process("bot", testutil.NewEventBuilder().Body("!ping").Build())
	require.NoError(t, err)
	assert.Zero(t, first.pingCount())
	assert.Equal(t, 1, second.pingCount())
}

func TestShutdownStopsAgents(t *testing.T) {
	e := New()
	require.NoError(t, e.Register(newTestBot("bot")))
	e.Shutdown()

	err := e.HandleEvent("bot", testutil.NewEventBuilder().Body("!ping").Build())
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
}
