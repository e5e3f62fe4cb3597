// Package config holds the key/value core shared by the configuration
// stores. Keys use dot notation ("search.default_limit").
package config

import (
	"maps"
	"sync"
)

// Values is a concurrency-safe map of settings with lenient typed reads.
// Decoders disagree on number types (TOML yields int64, JSON float64), so
// the getters accept any numeric representation that fits.
type Values struct {
	mu   sync.RWMutex
	data map[string]any
}

// Get returns the raw value stored under key.
func (v *Values) Get(key string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.data[key]
	return val, ok
}

// GetString returns the value under key, or "" when it is not a string.
func (v *Values) GetString(key string) string {
	val, _ := v.Get(key)
	str, _ := val.(string)
	return str
}

// GetInt returns the value under key as an int. Floats are truncated.
func (v *Values) GetInt(key string) int {
	val, _ := v.Get(key)
	switch n := val.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return 0
	}
}

// GetFloat returns the value under key as a float64, so "text_weight = 1"
// reads as 1.0.
func (v *Values) GetFloat(key string) float64 {
	val, _ := v.Get(key)
	switch n := val.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// GetBool returns the value under key, or false when it is not a bool.
func (v *Values) GetBool(key string) bool {
	val, _ := v.Get(key)
	b, _ := val.(bool)
	return b
}

// GetStringSlice returns the string elements of the list under key.
// Non-string elements are skipped.
func (v *Values) GetStringSlice(key string) []string {
	val, _ := v.Get(key)
	switch list := val.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Put stores value under key.
func (v *Values) Put(key string, value any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.data == nil {
		v.data = make(map[string]any)
	}
	v.data[key] = value
}

// Replace swaps the whole map. A nil map clears every value.
func (v *Values) Replace(data map[string]any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data = maps.Clone(data)
}

// Snapshot returns a copy of every stored value.
func (v *Values) Snapshot() map[string]any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := maps.Clone(v.data)
	if out == nil {
		out = make(map[string]any)
	}
	return out
}

// Len reports how many keys are set.
func (v *Values) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.data)
}
