package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keySearchDefaultLimit   = "search.default_limit"
	keySearchMaxLimit       = "search.max_limit"
	keySearchCandidateLimit = "search.candidate_limit"
	keySearchVectorWeight   = "search.vector_weight"
	keySearchTextWeight     = "search.text_weight"
	keySearchVectorTimeout  = "search.vector_timeout"
	keyEmbedProvider        = "embedding.provider"
	keyEmbedModel           = "embedding.model"
	keyEmbedBaseURL         = "embedding.base_url"
	keyEmbedAPIKey          = "embedding.api_key"
	keyEmbedDimensions      = "embedding.dimensions"
	keyEmbedRateLimit       = "embedding.rate_limit"
	keyIndexBackfillOnStart = "index.backfill_on_start"
	keyServerAddr           = "server.addr"
)

// Default embedding models per provider.
var defaultEmbeddingModels = map[domain.AIProvider]string{
	domain.AIProviderOllama: "nomic-embed-text",
	domain.AIProviderOpenAI: "text-embedding-3-small",
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		Search: domain.SearchSettings{
			DefaultLimit:   s.getInt(keySearchDefaultLimit, defaults.Search.DefaultLimit),
			MaxLimit:       s.getInt(keySearchMaxLimit, defaults.Search.MaxLimit),
			CandidateLimit: s.getInt(keySearchCandidateLimit, defaults.Search.CandidateLimit),
			Weights: domain.Weights{
				Vector: s.getFloat(keySearchVectorWeight, defaults.Search.Weights.Vector),
				Text:   s.getFloat(keySearchTextWeight, defaults.Search.Weights.Text),
			},
			VectorTimeout: s.getDuration(keySearchVectorTimeout, defaults.Search.VectorTimeout),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(defaults.Embedding.Provider),
			Model:      s.configStore.GetString(keyEmbedModel),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.configStore.GetInt(keyEmbedDimensions),
			RateLimit:  s.configStore.GetFloat(keyEmbedRateLimit),
		},
		Index: domain.IndexSettings{
			BackfillOnStart: s.getBool(keyIndexBackfillOnStart, defaults.Index.BackfillOnStart),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, defaults.Server.Addr),
		},
	}

	if settings.Embedding.Model == "" {
		settings.Embedding.Model = defaultEmbeddingModels[settings.Embedding.Provider]
	}
	if settings.Search.MaxLimit < settings.Search.DefaultLimit {
		settings.Search.MaxLimit = settings.Search.DefaultLimit
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.Settings) error {
	values := []struct {
		key   string
		value any
	}{
		{keySearchDefaultLimit, settings.Search.DefaultLimit},
		{keySearchMaxLimit, settings.Search.MaxLimit},
		{keySearchCandidateLimit, settings.Search.CandidateLimit},
		{keySearchVectorWeight, settings.Search.Weights.Vector},
		{keySearchTextWeight, settings.Search.Weights.Text},
		{keySearchVectorTimeout, settings.Search.VectorTimeout.String()},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyEmbedRateLimit, settings.Embedding.RateLimit},
		{keyIndexBackfillOnStart, settings.Index.BackfillOnStart},
		{keyServerAddr, settings.Server.Addr},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() && provider != domain.AIProviderNone {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else {
		settings.Embedding.Model = defaultEmbeddingModels[provider]
	}

	if provider == domain.AIProviderOllama {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetWeights updates the default fusion coefficients.
func (s *SettingsService) SetWeights(weights domain.Weights) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Search.Weights = weights.Clamped()
	return s.Save(settings)
}

// Validate checks the current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.Search.DefaultLimit < 1 {
		return fmt.Errorf("%w: search.default_limit must be positive", domain.ErrInvalidInput)
	}
	if settings.Search.CandidateLimit < 1 {
		return fmt.Errorf("%w: search.candidate_limit must be positive", domain.ErrInvalidInput)
	}
	if settings.Search.VectorTimeout <= 0 {
		return fmt.Errorf("%w: search.vector_timeout must be positive", domain.ErrInvalidInput)
	}
	if settings.Embedding.Provider != domain.AIProviderNone && !settings.Embedding.IsConfigured() {
		return fmt.Errorf(
			"embedding provider %q is not fully configured",
			settings.Embedding.Provider.Description(),
		)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return domain.Clamp01(s.configStore.GetFloat(key))
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(keyEmbedProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
