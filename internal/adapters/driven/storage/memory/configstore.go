package memory

import (
	"github.com/custodia-labs/docchat/internal/adapters/driven/config"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in memory only. It backs --no-config runs and
// tests; nothing survives the process.
type ConfigStore struct {
	config.Values
}

// NewConfigStore creates a config store seeded with the given values.
func NewConfigStore(seed ...map[string]any) *ConfigStore {
	s := &ConfigStore{}
	for _, m := range seed {
		for key, value := range m {
			s.Put(key, value)
		}
	}
	return s
}

// Set stores value under key.
func (s *ConfigStore) Set(key string, value any) error {
	s.Put(key, value)
	return nil
}

// Save is a no-op.
func (s *ConfigStore) Save() error { return nil }

// Load is a no-op; seeded and set values are kept.
func (s *ConfigStore) Load() error { return nil }

// Path returns ":memory:".
func (s *ConfigStore) Path() string { return ":memory:" }
