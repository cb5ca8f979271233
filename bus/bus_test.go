package bus

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botmesh-io/botmesh/core"
	"github.com/botmesh-io/botmesh/internal/testutil"
)

func TestSendToRegisteredAgent(t *testing.T) {
	b := New(nil)
	sender := core.AgentIdentity{Name: "alpha"}
	target := testutil.NewRecordingAgent("beta")
	b.Register(target)

	res := b.SendToAgent(sender, "beta", "hello")
	assert.Equal(t, core.Delivered, res.Status)
	assert.NoError(t, res.Err)

	msgs := target.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Payload)
	assert.Equal(t, "alpha", msgs[0].From.Name)
}

func TestSendToUnregisteredAgent(t *testing.T) {
	b := New(nil)
	res := b.SendToAgent(core.AgentIdentity{Name: "alpha"}, "ghost", "hello")

	assert.Equal(t, core.RecipientUnavailable, res.Status)
	var unavailable *core.RecipientUnavailableError
	require.ErrorAs(t, res.Err, &unavailable)
	assert.Equal(t, "ghost", unavailable.Recipient)
}

func TestSendAfterDeregister(t *testing.T) {
	b := New(nil)
	target := testutil.NewRecordingAgent("beta")
	b.Register(target)
	b.Deregister("beta")

	res := b.SendToAgent(core.AgentIdentity{Name: "alpha"}, "beta", "hello")
	assert.Equal(t, core.RecipientUnavailable, res.Status)
	assert.Empty(t, target.Messages())
}

func TestSendHookErrorIsConfined(t *testing.T) {
	b := New(nil)
	target := testutil.NewRecordingAgent("beta")
	target.FailWith = errors.New("hook broke")
	b.Register(target)

	res := b.SendToAgent(core.AgentIdentity{Name: "alpha"}, "beta", "hello")
	assert.Equal(t, core.HookFailed, res.Status)
	assert.ErrorContains(t, res.Err, "hook broke")
}

func TestBroadcastReachesAllButSender(t *testing.T) {
	b := New(nil)
	sender := testutil.NewRecordingAgent("alpha")
	b.Register(sender)
	others := make([]*testutil.RecordingAgent, 3)
	for i := range others {
		others[i] = testutil.NewRecordingAgent(fmt.Sprintf("peer%d", i))
		b.Register(others[i])
	}

	results := b.Broadcast(sender.Identity(), core.AllAgents, "announce")
	require.Len(t, results, 3)
	for _, res := range results {
		assert.Equal(t, core.Delivered, res.Status)
	}
	for _, other := range others {
		bcasts := other.Broadcasts()
		require.Len(t, bcasts, 1)
		assert.Equal(t, "announce", bcasts[0].Payload)
		assert.Equal(t, "alpha", bcasts[0].From.Name)
	}
	// The sender never receives its own broadcast.
	assert.Empty(t, sender.Broadcasts())
}

func TestBroadcastToleratesFailingRecipient(t *testing.T) {
	b := New(nil)
	sender := core.AgentIdentity{Name: "alpha"}

	ok1 := testutil.NewRecordingAgent("peer0")
	bad := testutil.NewRecordingAgent("peer1")
	bad.Panic = true
	ok2 := testutil.NewRecordingAgent("peer2")
	for _, a := range []*testutil.RecordingAgent{ok1, bad, ok2} {
		b.Register(a)
	}

	results := b.Broadcast(sender, core.AllAgents, "announce")
	require.Len(t, results, 3)

	byRecipient := map[string]core.DeliveryResult{}
	for _, res := range results {
		byRecipient[res.Recipient] = res
	}
	assert.Equal(t, core.Delivered, byRecipient["peer0"].Status)
	assert.Equal(t, core.HookFailed, byRecipient["peer1"].Status)
	assert.Equal(t, core.Delivered, byRecipient["peer2"].Status)

	// The other two still received it exactly once.
	assert.Len(t, ok1.Broadcasts(), 1)
	assert.Len(t, ok2.Broadcasts(), 1)
}

func TestBroadcastScopeFilter(t *testing.T) {
	b := New(nil)
	sender := core.AgentIdentity{Name: "alpha"}
	worker := testutil.NewRecordingAgent("worker1")
	observer := testutil.NewRecordingAgent("observer1")
	b.Register(worker)
	b.Register(observer)

	results := b.Broadcast(sender, func(id core.AgentIdentity) bool {
		return id.Name == "worker1"
	}, "task")
	require.Len(t, results, 1)
	assert.Equal(t, "worker1", results[0].Recipient)
	assert.Len(t, worker.Broadcasts(), 1)
	assert.Empty(t, observer.Broadcasts())
}

func TestBroadcastZeroMatchesReturnsEmpty(t *testing.T) {
	b := New(nil)
	sender := testutil.NewRecordingAgent("alpha")
	b.Register(sender)

	results := b.Broadcast(sender.Identity(), core.AllAgents, "anyone there")
	assert.Empty(t, results)
}

func TestFIFOPerSenderRecipientPair(t *testing.T) {
	b := New(nil)
	sender := core.AgentIdentity{Name: "alpha"}
	target := testutil.NewRecordingAgent("beta")
	b.Register(target)

	for i := 0; i < 10; i++ {
		res := b.SendToAgent(sender, "beta", i)
		require.Equal(t, core.Delivered, res.Status)
	}

	msgs := target.Messages()
	require.Len(t, msgs, 10)
	for i, msg := range msgs {
		assert.Equal(t, i, msg.Payload)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	b := New(nil)
	sender := core.AgentIdentity{Name: "alpha"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("agent%d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.Register(testutil.NewRecordingAgent(name))
			b.Deregister(name)
		}()
		go func() {
			defer wg.Done()
			// Either outcome is fine; it must simply never race or panic.
			b.SendToAgent(sender, name, "probe")
		}()
	}
	wg.Wait()
	assert.Empty(t, b.Names())
}

func TestNamesSorted(t *testing.T) {
	b := New(nil)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		b.Register(testutil.NewRecordingAgent(name))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, b.Names())
}
