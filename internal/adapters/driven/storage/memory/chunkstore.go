package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interfaces.
var (
	_ driven.ChunkStore   = (*ChunkStore)(nil)
	_ driven.LexicalIndex = (*ChunkStore)(nil)
)

// ChunkStore is an in-memory implementation of driven.ChunkStore that
// also serves as its own driven.LexicalIndex. Index entries are updated
// under the same lock as the chunks they describe.
type ChunkStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string]domain.Chunk
	entries   map[string]map[string]int // chunk ID -> term frequencies
}

// NewChunkStore creates a new in-memory chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string]domain.Chunk),
		entries:   make(map[string]map[string]int),
	}
}

// SaveDocument stores or updates a document.
func (s *ChunkStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	stored := *doc
	if existing, ok := s.documents[doc.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.documents[doc.ID] = stored
	return nil
}

// GetDocument retrieves a document by ID.
func (s *ChunkStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns all documents ordered by creation time.
func (s *ChunkStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Document, 0, len(s.documents))
	for id := range s.documents {
		result = append(result, s.documents[id])
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// DeleteDocument removes a document and its chunks.
func (s *ChunkStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	for chunkID, chunk := range s.chunks {
		if chunk.DocumentID == id {
			delete(s.chunks, chunkID)
			delete(s.entries, chunkID)
		}
	}
	return nil
}

// InsertChunks stores new chunks. Either all chunks are stored or none.
func (s *ChunkStore) InsertChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if _, ok := s.documents[c.DocumentID]; !ok {
			return fmt.Errorf("chunk %s: document %s: %w", c.ID, c.DocumentID, domain.ErrNotFound)
		}
		if _, ok := s.chunks[c.ID]; ok || seen[c.ID] {
			return fmt.Errorf("chunk %s: %w", c.ID, domain.ErrAlreadyExists)
		}
		seen[c.ID] = true
		if s.positionTaken(c, seen) {
			return fmt.Errorf("chunk %s: position %d/%d: %w", c.ID, c.PageNumber, c.ChunkIndex, domain.ErrAlreadyExists)
		}
	}
	for i := 1; i < len(chunks); i++ {
		for j := 0; j < i; j++ {
			if chunks[i].DocumentID == chunks[j].DocumentID &&
				chunks[i].PageNumber == chunks[j].PageNumber &&
				chunks[i].ChunkIndex == chunks[j].ChunkIndex {
				return fmt.Errorf("chunk %s: position %d/%d: %w",
					chunks[i].ID, chunks[i].PageNumber, chunks[i].ChunkIndex, domain.ErrAlreadyExists)
			}
		}
	}

	for _, c := range chunks {
		s.chunks[c.ID] = c
		s.entries[c.ID] = termFrequencies(c.Content)
	}
	return nil
}

// UpdateChunk replaces an existing chunk.
func (s *ChunkStore) UpdateChunk(_ context.Context, chunk domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[chunk.ID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := s.documents[chunk.DocumentID]; !ok {
		return fmt.Errorf("chunk %s: document %s: %w", chunk.ID, chunk.DocumentID, domain.ErrNotFound)
	}
	if s.positionTaken(&chunk, map[string]bool{chunk.ID: true}) {
		return fmt.Errorf("chunk %s: position %d/%d: %w", chunk.ID, chunk.PageNumber, chunk.ChunkIndex, domain.ErrAlreadyExists)
	}
	s.chunks[chunk.ID] = chunk
	s.entries[chunk.ID] = termFrequencies(chunk.Content)
	return nil
}

// DeleteChunk removes a chunk.
func (s *ChunkStore) DeleteChunk(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chunks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.chunks, id)
	delete(s.entries, id)
	return nil
}

// GetChunk retrieves a specific chunk by ID.
func (s *ChunkStore) GetChunk(_ context.Context, id string) (*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chunk, nil
}

// GetChunks retrieves all chunks for a document ordered by page and index.
func (s *ChunkStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Chunk
	for id := range s.chunks {
		if s.chunks[id].DocumentID == documentID {
			result = append(result, s.chunks[id])
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Ref().Less(result[j].Ref())
	})
	return result, nil
}

// GetChunksByIDs retrieves the chunks with the given IDs.
func (s *ChunkStore) GetChunksByIDs(_ context.Context, ids []string) (map[string]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]domain.Chunk, len(ids))
	for _, id := range ids {
		if chunk, ok := s.chunks[id]; ok {
			result[id] = chunk
		}
	}
	return result, nil
}

// CountChunks returns the number of live chunks.
func (s *ChunkStore) CountChunks(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// Search scores chunks by the summed frequency of the query terms,
// normalised by the best match.
func (s *ChunkStore) Search(
	_ context.Context, query string, filter domain.SearchFilter, limit int,
) ([]domain.Candidate, error) {
	terms := domain.QueryTerms(query)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.Candidate
	for id, freqs := range s.entries {
		var raw float64
		for _, term := range terms {
			raw += float64(freqs[term])
		}
		if raw == 0 {
			continue
		}
		chunk := s.chunks[id]
		var doc *domain.Document
		if d, ok := s.documents[chunk.DocumentID]; ok {
			doc = &d
		}
		ref := chunk.Ref()
		if !filter.Matches(doc, ref) {
			continue
		}
		results = append(results, domain.Candidate{Ref: ref, Score: raw})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Ref.Less(results[j].Ref)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	if len(results) > 0 {
		best := results[0].Score
		for i := range results {
			results[i].Score /= best
		}
	}
	return results, nil
}

// Backfill indexes every chunk when the index holds no entries.
func (s *ChunkStore) Backfill(_ context.Context) (domain.BackfillResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.entries); n > 0 {
		return domain.BackfillResult{Skipped: true, Existing: n}, nil
	}
	return s.reindexLocked(), nil
}

// Rebuild clears the index and repopulates it from the chunks.
func (s *ChunkStore) Rebuild(_ context.Context) (domain.BackfillResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := len(s.entries)
	s.entries = make(map[string]map[string]int, len(s.chunks))
	result := s.reindexLocked()
	result.Existing = existing
	return result, nil
}

// Status compares chunk and entry counts.
func (s *ChunkStore) Status(_ context.Context) (domain.IndexStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.IndexStatus{Chunks: len(s.chunks), Entries: len(s.entries)}, nil
}

// DropIndex discards all index entries while keeping the chunks.
// Used to simulate a store created before the index existed.
func (s *ChunkStore) DropIndex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]map[string]int)
}

func (s *ChunkStore) reindexLocked() domain.BackfillResult {
	var result domain.BackfillResult
	for id := range s.chunks {
		s.entries[id] = termFrequencies(s.chunks[id].Content)
		result.Indexed++
	}
	return result
}

// positionTaken reports whether another stored chunk, not listed in skip,
// occupies the same (document, page, index) position.
func (s *ChunkStore) positionTaken(c *domain.Chunk, skip map[string]bool) bool {
	for id := range s.chunks {
		if skip[id] {
			continue
		}
		other := s.chunks[id]
		if other.DocumentID == c.DocumentID && other.PageNumber == c.PageNumber && other.ChunkIndex == c.ChunkIndex {
			return true
		}
	}
	return false
}

func termFrequencies(content string) map[string]int {
	freqs := make(map[string]int)
	for _, field := range strings.FieldsFunc(strings.ToLower(content), isSeparator) {
		freqs[field]++
	}
	return freqs
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
