package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botmesh-io/botmesh/core"
)

func TestGetSetRoundTrip(t *testing.T) {
	s := NewInMemoryStore()

	_, ok, err := s.Get(core.GlobalNamespace, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(core.GlobalNamespace, "greeting", "hello"))
	v, ok, err := s.Get(core.GlobalNamespace, "greeting")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", v)
}

func TestNamespacesAreIsolated(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Set(core.AgentNamespace("alpha"), "k", 1))
	require.NoError(t, s.Set(core.AgentNamespace("beta"), "k", 2))
	require.NoError(t, s.Set(core.GlobalNamespace, "k", 3))

	v, _, err := s.Get(core.AgentNamespace("alpha"), "k")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	v, _, err = s.Get(core.AgentNamespace("beta"), "k")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	v, _, err = s.Get(core.GlobalNamespace, "k")
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestIncrementCreatesAtZero(t *testing.T) {
	s := NewInMemoryStore()
	n, err := s.Increment(core.GlobalNamespace, "counter", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Increment(core.GlobalNamespace, "counter", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestIncrementRejectsNonCounter(t *testing.T) {
	s := NewInMemoryStore()
	require.NoError(t, s.Set(core.GlobalNamespace, "name", "bob"))
	_, err := s.Increment(core.GlobalNamespace, "name", 1)
	assert.Error(t, err)
}

// C concurrent callers on a fresh key must yield exactly C: no lost
// updates under any interleaving.
func TestIncrementConcurrent(t *testing.T) {
	s := NewInMemoryStore()
	const callers = 64

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			_, err := s.Increment(core.GlobalNamespace, "hits", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	v, ok, err := s.Get(core.GlobalNamespace, "hits")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(callers), v)
}

func TestRememberComputesOnce(t *testing.T) {
	s := NewInMemoryStore()
	computed := 0

	v, err := s.Remember(core.GlobalNamespace, "motd", func() (any, error) {
		computed++
		return "first", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	// A second call returns the stored value even though the compute
	// function would produce something else.
	v, err = s.Remember(core.GlobalNamespace, "motd", func() (any, error) {
		computed++
		return "second", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "first", v)
	assert.Equal(t, 1, computed)
}

func TestRememberConcurrentComputesOnce(t *testing.T) {
	s := NewInMemoryStore()
	computed := 0
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.Remember(core.GlobalNamespace, "shared", func() (any, error) {
				mu.Lock()
				computed++
				mu.Unlock()
				return "value", nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "value", v)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, computed)
}

func TestRememberErrorLeavesKeyAbsent(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.Remember(core.GlobalNamespace, "k", func() (any, error) {
		return nil, fmt.Errorf("backend down")
	})
	require.Error(t, err)

	_, ok, err := s.Get(core.GlobalNamespace, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
