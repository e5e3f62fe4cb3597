package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfigStore(t *testing.T) (*ConfigStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewConfigStore_Success(t *testing.T) {
	store, dir := newTestConfigStore(t)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".docchat", "config.toml"), store.Path())
}

func TestNewConfigStore_CreatesNestedDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "deep")

	_, err := NewConfigStore(nested)
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestNewConfigStore_Errors(t *testing.T) {
	_, err := NewConfigStore("/dev/null/cannot/create")
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not toml {{{[["), 0600))
	_, err = NewConfigStore(dir)
	assert.Error(t, err)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, _ := newTestConfigStore(t)

	require.NoError(t, store.Set("name", "docchat"))
	require.NoError(t, store.Set("limit", int64(25)))
	require.NoError(t, store.Set("weight", 0.4))
	require.NoError(t, store.Set("enabled", true))
	require.NoError(t, store.Set("tags", []string{"a", "b"}))

	assert.Equal(t, "docchat", store.GetString("name"))
	assert.Equal(t, 25, store.GetInt("limit"))
	assert.InDelta(t, 0.4, store.GetFloat("weight"), 1e-9)
	assert.InDelta(t, 25.0, store.GetFloat("limit"), 1e-9)
	assert.True(t, store.GetBool("enabled"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("tags"))

	// Wrong types and missing keys yield zero values.
	assert.Empty(t, store.GetString("limit"))
	assert.Zero(t, store.GetInt("name"))
	assert.Zero(t, store.GetFloat("name"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetStringSlice("missing"))
	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_WritesNestedTables(t *testing.T) {
	store, dir := newTestConfigStore(t)

	require.NoError(t, store.Set("search.default_limit", int64(10)))
	require.NoError(t, store.Set("search.text_weight", 0.35))
	require.NoError(t, store.Set("embedding.provider", "ollama"))

	content, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(content), "[search]")
	assert.Contains(t, string(content), "[embedding]")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, reloaded.GetInt("search.default_limit"))
	assert.InDelta(t, 0.35, reloaded.GetFloat("search.text_weight"), 1e-9)
	assert.Equal(t, "ollama", reloaded.GetString("embedding.provider"))
}

func TestConfigStore_ReadsHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := `
[search]
max_limit = 50
vector_weight = 1

[index]
backfill_on_start = false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, 50, store.GetInt("search.max_limit"))
	assert.InDelta(t, 1.0, store.GetFloat("search.vector_weight"), 1e-9)
	val, ok := store.Get("index.backfill_on_start")
	assert.True(t, ok)
	assert.Equal(t, false, val)
}

func TestNestMap_ScalarPrefixStaysFlat(t *testing.T) {
	nested := nestMap(map[string]any{
		"a":     1,
		"a.b":   2,
		"c.d.e": 3,
	})

	assert.Equal(t, 1, nested["a"])
	assert.Equal(t, 2, nested["a.b"])
	assert.Equal(t, map[string]any{"d": map[string]any{"e": 3}}, nested["c"])
	assert.Equal(t, map[string]any{"a": 1, "a.b": 2, "c.d.e": 3}, flattenMap(nested, ""))
}

func TestConfigStore_SaveErrors(t *testing.T) {
	store, _ := newTestConfigStore(t)

	assert.Error(t, store.Set("channel", make(chan int)))

	values := store.Snapshot()
	delete(values, "channel")
	store.Replace(values)

	// A directory in place of the file cannot be written.
	require.NoError(t, store.Save())
	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))
	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_LoadDiscardsUnsavedValues(t *testing.T) {
	store, _ := newTestConfigStore(t)
	require.NoError(t, store.Set("search.default_limit", int64(25)))

	store.Put("search.max_limit", int64(50))
	require.NoError(t, store.Load())

	assert.Equal(t, 25, store.GetInt("search.default_limit"))
	_, ok := store.Get("search.max_limit")
	assert.False(t, ok)
}

func TestConfigStore_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("# comment only\n"), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	_, ok := store.Get("any")
	assert.False(t, ok)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, _ := newTestConfigStore(t)
	require.NoError(t, store.Set("key", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, _ := newTestConfigStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set("search.default_limit", int64(i))
		}()
		go func() {
			defer wg.Done()
			_ = store.GetInt("search.default_limit")
		}()
	}
	wg.Wait()
}
