package domain

import "time"

const unknownDescription = "Unknown"

// Default settings values.
const (
	// DefaultCandidateLimit bounds the candidates each signal contributes.
	DefaultCandidateLimit = 200

	// DefaultVectorTimeout bounds a single call to the vector score provider.
	DefaultVectorTimeout = 30 * time.Second

	// DefaultServerAddr is the HTTP listen address.
	DefaultServerAddr = ":8000"
)

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderNone disables vector search.
	AIProviderNone AIProvider = "none"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderNone:
		return "None (lexical search only)"
	default:
		return unknownDescription
	}
}

// SearchSettings holds search behaviour configuration.
type SearchSettings struct {
	// DefaultLimit is used when a request carries no limit.
	DefaultLimit int

	// MaxLimit caps the limit of a single request.
	MaxLimit int

	// CandidateLimit bounds the candidates fetched from each signal.
	CandidateLimit int

	// Weights are the default fusion coefficients.
	Weights Weights

	// VectorTimeout bounds the call to the vector score provider.
	VectorTimeout time.Duration
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the expected vector size (0 selects the model default).
	Dimensions int

	// RateLimit is the maximum embedding requests per second (0 = unlimited).
	RateLimit float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// IndexSettings holds lexical index maintenance configuration.
type IndexSettings struct {
	// BackfillOnStart runs the idempotent backfill when the store opens.
	BackfillOnStart bool
}

// ServerSettings holds HTTP API configuration.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string
}

// Settings is the complete application configuration.
type Settings struct {
	Search    SearchSettings
	Embedding EmbeddingSettings
	Index     IndexSettings
	Server    ServerSettings
}

// DefaultSettings returns settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		Search: SearchSettings{
			DefaultLimit:   DefaultSearchLimit,
			MaxLimit:       DefaultMaxSearchLimit,
			CandidateLimit: DefaultCandidateLimit,
			Weights:        DefaultWeights(),
			VectorTimeout:  DefaultVectorTimeout,
		},
		Embedding: EmbeddingSettings{
			Provider: AIProviderNone,
		},
		Index: IndexSettings{
			BackfillOnStart: true,
		},
		Server: ServerSettings{
			Addr: DefaultServerAddr,
		},
	}
}
