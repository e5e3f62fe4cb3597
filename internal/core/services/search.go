package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService answers search requests over the chunk store.
// Lexical scores come from the lexical index; vector scores come from the
// embedding service and vector index, both optional.
type SearchService struct {
	chunkStore       driven.ChunkStore
	lexicalIndex     driven.LexicalIndex
	vectorIndex      driven.VectorIndex
	embeddingService driven.EmbeddingService
	settings         domain.SearchSettings
}

// NewSearchService creates a new search service.
// The vectorIndex and embeddingService parameters are optional (can be nil).
// Zero-valued settings fields fall back to the defaults.
func NewSearchService(
	chunkStore driven.ChunkStore,
	lexicalIndex driven.LexicalIndex,
	vectorIndex driven.VectorIndex,
	embeddingService driven.EmbeddingService,
	settings domain.SearchSettings,
) *SearchService {
	defaults := domain.DefaultSettings().Search
	if settings.DefaultLimit <= 0 {
		settings.DefaultLimit = defaults.DefaultLimit
	}
	if settings.MaxLimit < settings.DefaultLimit {
		settings.MaxLimit = max(defaults.MaxLimit, settings.DefaultLimit)
	}
	if settings.CandidateLimit <= 0 {
		settings.CandidateLimit = defaults.CandidateLimit
	}
	if settings.VectorTimeout <= 0 {
		settings.VectorTimeout = defaults.VectorTimeout
	}
	if settings.Weights == (domain.Weights{}) {
		settings.Weights = defaults.Weights
	}

	return &SearchService{
		chunkStore:       chunkStore,
		lexicalIndex:     lexicalIndex,
		vectorIndex:      vectorIndex,
		embeddingService: embeddingService,
		settings:         settings,
	}
}

// NormalizeRequest validates a request and applies defaults.
// The limit is capped at the configured maximum and the weights are
// clamped to [0,1].
func (s *SearchService) NormalizeRequest(req domain.SearchRequest) (domain.SearchPlan, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return domain.SearchPlan{}, fmt.Errorf("%w: query must not be empty", domain.ErrInvalidInput)
	}
	if req.Limit < 0 {
		return domain.SearchPlan{}, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidInput, req.Limit)
	}
	if req.Offset < 0 {
		return domain.SearchPlan{}, fmt.Errorf("%w: offset must be non-negative, got %d", domain.ErrInvalidInput, req.Offset)
	}

	searchType, err := domain.ParseSearchType(string(req.Type))
	if err != nil {
		return domain.SearchPlan{}, err
	}

	limit := req.Limit
	if limit == 0 {
		limit = s.settings.DefaultLimit
	}
	if limit > s.settings.MaxLimit {
		limit = s.settings.MaxLimit
	}

	weights := s.settings.Weights
	if req.VectorWeight != nil {
		weights.Vector = *req.VectorWeight
	}
	if req.TextWeight != nil {
		weights.Text = *req.TextWeight
	}

	return domain.SearchPlan{
		Query:   query,
		Type:    searchType,
		Limit:   limit,
		Offset:  req.Offset,
		Weights: weights.Clamped(),
		Filter:  domain.ParseFilters(req.DocumentID, req.Filters),
	}, nil
}

// Search validates the request, runs the signals its type needs and
// returns one page of the fused ranking.
func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	start := time.Now()
	logger.Section("Search Execution")
	logger.Debug("Query: %q", req.Query)

	plan, err := s.NormalizeRequest(req)
	if err != nil {
		logger.Debug("Rejected request: %v", err)
		return nil, err
	}

	logger.Debug("Type: %s, Limit: %d, Offset: %d, Weights: %.2f/%.2f",
		plan.Type, plan.Limit, plan.Offset, plan.Weights.Vector, plan.Weights.Text)
	logger.Debug("Services available: lexical=%t, vector=%t, embedding=%t",
		s.lexicalIndex != nil, s.vectorIndex != nil, s.embeddingService != nil)

	// Every fused position up to offset+limit must be reachable.
	candidateLimit := max(s.settings.CandidateLimit, plan.Offset+plan.Limit)

	fused, degradedReason, err := s.rank(ctx, plan, candidateLimit)
	if err != nil {
		logger.Warn("Search failed: %v", err)
		return nil, fmt.Errorf("search: %w", err)
	}
	logger.Debug("Fused candidates: %d", len(fused))

	page := Paginate(fused, plan.Offset, plan.Limit)

	results, err := s.hydrateResults(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %w", err)
	}

	resp := &domain.SearchResponse{
		Query:          plan.Query,
		Results:        results,
		Count:          len(fused),
		Type:           plan.Type,
		Degraded:       degradedReason != "",
		DegradedReason: degradedReason,
		Limit:          plan.Limit,
		Offset:         plan.Offset,
		Weights:        plan.Weights,
		ExecutionTime:  time.Since(start),
	}
	logger.Info("Final results: %d of %d (degraded=%t)", len(results), resp.Count, resp.Degraded)

	return resp, nil
}

// rank runs the signals the plan needs and fuses them. A non-empty reason
// means the vector signal failed and the ranking fell back to lexical scores.
func (s *SearchService) rank(
	ctx context.Context, plan domain.SearchPlan, limit int,
) ([]domain.FusedCandidate, string, error) {
	var lexicalResults, vectorResults []domain.Candidate
	var lexicalErr, vectorErr error

	var wg sync.WaitGroup
	if plan.Type.UsesLexical() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lexicalResults, lexicalErr = s.lexicalSearch(ctx, plan, limit)
		}()
	}
	if plan.Type.UsesVector() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vectorResults, vectorErr = s.vectorSearch(ctx, plan, limit)
		}()
	}
	wg.Wait()

	switch plan.Type {
	case domain.SearchTypeFullText:
		if lexicalErr != nil {
			return nil, "", lexicalErr
		}
		return rankLexical(lexicalResults), "", nil

	case domain.SearchTypeVector:
		if vectorErr == nil {
			return rankVector(vectorResults), "", nil
		}
		reason := degradedReason(vectorErr)
		logger.Warn("Vector search failed, falling back to lexical results: %v", vectorErr)

		// Lexical candidates are only fetched once the vector signal is gone.
		lexicalResults, lexicalErr = s.lexicalSearch(ctx, plan, limit)
		if lexicalErr != nil {
			return nil, "", lexicalErr
		}
		return rankLexical(lexicalResults), reason, nil

	default:
		if lexicalErr != nil {
			return nil, "", lexicalErr
		}
		if vectorErr != nil {
			reason := degradedReason(vectorErr)
			logger.Warn("Hybrid search: vector search failed, using lexical results only: %v", vectorErr)
			return Fuse(lexicalResults, nil, plan.Weights), reason, nil
		}
		logger.Debug("Hybrid search: merging %d lexical + %d vector candidates",
			len(lexicalResults), len(vectorResults))
		return Fuse(lexicalResults, vectorResults, plan.Weights), "", nil
	}
}

// lexicalSearch queries the lexical index.
func (s *SearchService) lexicalSearch(
	ctx context.Context, plan domain.SearchPlan, limit int,
) ([]domain.Candidate, error) {
	if s.lexicalIndex == nil {
		logger.Warn("Lexical search unavailable: lexical index is nil")
		return nil, domain.ErrSearchUnavailable
	}

	hits, err := s.lexicalIndex.Search(ctx, plan.Query, plan.Filter, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	logger.Debug("Lexical search: %d hits", len(hits))
	return hits, nil
}

// vectorSearch embeds the query and queries the vector index. The whole
// call is bounded by the configured vector timeout.
func (s *SearchService) vectorSearch(
	ctx context.Context, plan domain.SearchPlan, limit int,
) ([]domain.Candidate, error) {
	if s.embeddingService == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.vectorIndex == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, s.settings.VectorTimeout)
	defer cancel()

	embedding, err := s.embeddingService.Embed(ctx, plan.Query)
	if err != nil {
		return nil, fmt.Errorf("generate query embedding: %w", err)
	}
	logger.Debug("Query embedding: %d dimensions", len(embedding))

	hits, err := s.vectorIndex.Search(ctx, embedding, limit, plan.Filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	// A provider that ignores cancellation must not leak late results.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("vector search: %w", ctxErr)
	}

	logger.Debug("Vector search: %d hits", len(hits))
	return hits, nil
}

// degradedReason describes a vector failure for the response metadata.
func degradedReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "vector search timed out"
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return "embedding service not configured"
	case errors.Is(err, domain.ErrVectorIndexUnavailable):
		return "vector index not configured"
	default:
		return "vector search failed: " + err.Error()
	}
}

// hydrateResults loads chunk and document data for one page of candidates.
// Chunks deleted since retrieval are skipped.
func (s *SearchService) hydrateResults(
	ctx context.Context, page []domain.FusedCandidate,
) ([]domain.SearchResult, error) {
	results := make([]domain.SearchResult, 0, len(page))
	if len(page) == 0 {
		return results, nil
	}
	if s.chunkStore == nil {
		return nil, errors.New("chunk store unavailable")
	}

	chunkIDs := make([]string, len(page))
	for i, fc := range page {
		chunkIDs[i] = fc.Ref.ChunkID
	}

	chunks, err := s.chunkStore.GetChunksByIDs(ctx, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}

	docs := make(map[string]*domain.Document)
	for _, fc := range page {
		chunk, ok := chunks[fc.Ref.ChunkID]
		if !ok {
			// Chunk was deleted, skip it
			continue
		}

		doc, seen := docs[chunk.DocumentID]
		if !seen {
			doc, err = s.chunkStore.GetDocument(ctx, chunk.DocumentID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("get document %s: %w", chunk.DocumentID, err)
			}
			docs[chunk.DocumentID] = doc
		}

		results = append(results, domain.SearchResult{
			ChunkID:      chunk.ID,
			DocumentID:   chunk.DocumentID,
			PageNumber:   chunk.PageNumber,
			ChunkIndex:   chunk.ChunkIndex,
			Content:      chunk.Content,
			ContentType:  chunk.ContentType,
			SectionPath:  chunk.SectionPath,
			Score:        fc.Score,
			LexicalScore: fc.LexicalScore,
			VectorScore:  fc.VectorScore,
			Document:     doc.Info(),
		})
	}

	return results, nil
}
