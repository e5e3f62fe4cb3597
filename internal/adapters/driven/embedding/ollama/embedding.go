// Package ollama embeds query and chunk text with a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768
)

// maxErrorBody bounds how much of a failed response is quoted in errors.
const maxErrorBody = 512

// ErrModelNotPulled is returned by Ping when the server is up but does not
// have the configured model.
var ErrModelNotPulled = errors.New("ollama: model not pulled")

// Config holds configuration for the Ollama embedding service.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions is the expected vector size. When zero it is learned from
	// the first embedding and DefaultDimensions is reported until then.
	Dimensions int

	// RateLimit caps requests per second. Zero disables limiting.
	RateLimit float64
}

// EmbeddingService calls Ollama's /api/embed endpoint.
type EmbeddingService struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	model   string

	fixedDims  bool
	dimensions atomic.Int64
}

type embedRequest struct {
	Model    string `json:"model"`
	Input    string `json:"input"`
	Truncate bool   `json:"truncate"`
}

type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

type showRequest struct {
	Model string `json:"model"`
}

// apiError is a non-200 answer from the Ollama API.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("ollama: status %d", e.Status)
	}
	return fmt.Sprintf("ollama: status %d: %s", e.Status, e.Body)
}

// NewEmbeddingService creates a new Ollama embedding service.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &EmbeddingService{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		model:     cfg.Model,
		fixedDims: cfg.Dimensions > 0,
	}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}
	if s.fixedDims {
		s.dimensions.Store(int64(cfg.Dimensions))
	}
	return s
}

// Embed returns the embedding of text. Input longer than the model's context
// is truncated by the server.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	var resp embedResponse
	if err := s.post(ctx, "/api/embed", embedRequest{Model: s.model, Input: text, Truncate: true}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding for model %s", s.model)
	}

	embedding := resp.Embeddings[0]
	if s.fixedDims {
		if want := int(s.dimensions.Load()); len(embedding) != want {
			return nil, fmt.Errorf("ollama model %s returned %d dimensions, expected %d",
				s.model, len(embedding), want)
		}
	} else {
		s.dimensions.CompareAndSwap(0, int64(len(embedding)))
	}
	return embedding, nil
}

// Dimensions returns the configured or learned vector size.
func (s *EmbeddingService) Dimensions() int {
	if d := s.dimensions.Load(); d > 0 {
		return int(d)
	}
	return DefaultDimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks that the server answers and has the model pulled, without
// running inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	err := s.post(ctx, "/api/show", showRequest{Model: s.model}, nil)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s (run 'ollama pull %s')", ErrModelNotPulled, s.model, s.model)
	}
	return err
}

// Close is a no-op; the HTTP client holds no resources of its own.
func (s *EmbeddingService) Close() error {
	return nil
}

// post sends body as JSON and decodes the answer into out unless out is nil.
func (s *EmbeddingService) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &apiError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
