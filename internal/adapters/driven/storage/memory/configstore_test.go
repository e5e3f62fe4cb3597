package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore()
	require.NotNil(t, store)
	assert.Equal(t, ":memory:", store.Path())
	assert.Zero(t, store.Len())
	assert.NoError(t, store.Load())
	assert.NoError(t, store.Save())
}

func TestNewConfigStore_Seeded(t *testing.T) {
	store := NewConfigStore(
		map[string]any{"search.default_limit": 20, "embedding.provider": "ollama"},
		map[string]any{"search.default_limit": 30},
	)

	assert.Equal(t, 30, store.GetInt("search.default_limit"))
	assert.Equal(t, "ollama", store.GetString("embedding.provider"))

	require.NoError(t, store.Load())
	assert.Equal(t, 2, store.Len())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("search.default_limit", 10))
	require.NoError(t, store.Set("search.default_limit", 25))

	val, ok := store.Get("search.default_limit")
	assert.True(t, ok)
	assert.Equal(t, 25, val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("search.default_limit", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("search.default_limit")
		}()
	}
	wg.Wait()

	_, ok := store.Get("search.default_limit")
	assert.True(t, ok)
}
