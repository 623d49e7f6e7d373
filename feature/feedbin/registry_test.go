package feedbin

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func buildTestClient() (*Client, error) {
	return NewClient(Config{BaseURL: "http://localhost"}, "user", "pw", zap.NewNop()), nil
}

func TestRegistryGet(t *testing.T) {
	registry := NewRegistry()

	first, err := registry.Get("user", buildTestClient)
	require.NoError(t, err)

	second, err := registry.Get("user", buildTestClient)
	require.NoError(t, err)

	assert.Same(t, first, second, "same identity must yield the same instance")
	assert.Equal(t, 1, registry.Len())
}

func TestRegistryConcurrentIdentity(t *testing.T) {
	// Many goroutines racing on the same key must all observe one
	// reference-equal instance; the constructor runs at most once.
	registry := NewRegistry()

	var builds int
	build := func() (*Client, error) {
		builds++
		return buildTestClient()
	}

	const workers = 32
	clients := make([]*Client, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			c, err := registry.Get("user", build)
			assert.NoError(t, err)
			clients[i] = c
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, builds)
	for i := 1; i < workers; i++ {
		assert.Same(t, clients[0], clients[i])
	}
}

func TestRegistryRemove(t *testing.T) {
	registry := NewRegistry()

	first, err := registry.Get("user", buildTestClient)
	require.NoError(t, err)

	registry.Remove("user")

	rebuilt, err := registry.Get("user", buildTestClient)
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt, "eviction must force a rebuild")
}

func TestRegistryClear(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("alice", buildTestClient)
	require.NoError(t, err)
	_, err = registry.Get("bob", buildTestClient)
	require.NoError(t, err)
	assert.Equal(t, 2, registry.Len())

	registry.Clear()
	assert.Equal(t, 0, registry.Len())
}

func TestRegistryDistinctIdentities(t *testing.T) {
	registry := NewRegistry()

	alice, err := registry.Get("alice", buildTestClient)
	require.NoError(t, err)
	bob, err := registry.Get("bob", buildTestClient)
	require.NoError(t, err)

	assert.NotSame(t, alice, bob)
}
