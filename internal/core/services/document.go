package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages documents and their chunks.
// Index maintenance happens inside the chunk store; this service only
// validates input and applies defaults.
type DocumentService struct {
	chunkStore driven.ChunkStore
}

// NewDocumentService creates a new document service.
func NewDocumentService(chunkStore driven.ChunkStore) *DocumentService {
	return &DocumentService{chunkStore: chunkStore}
}

// Save stores or updates a document.
func (s *DocumentService) Save(ctx context.Context, doc *domain.Document) error {
	if err := prepareDocument(doc); err != nil {
		return err
	}
	if err := s.chunkStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("saving document %s: %w", doc.ID, err)
	}
	return nil
}

// Import stores a document together with its chunks. Every chunk is
// validated before anything is written. When the chunk insert fails, a
// document created by this call is removed again.
func (s *DocumentService) Import(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	if err := prepareDocument(doc); err != nil {
		return err
	}
	prepared, err := prepareChunks(doc.ID, chunks)
	if err != nil {
		return err
	}

	_, err = s.chunkStore.GetDocument(ctx, doc.ID)
	created := errors.Is(err, domain.ErrNotFound)
	if err != nil && !created {
		return fmt.Errorf("document %s: %w", doc.ID, err)
	}

	if err := s.chunkStore.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("saving document %s: %w", doc.ID, err)
	}
	if len(prepared) == 0 {
		return nil
	}

	if err := s.chunkStore.InsertChunks(ctx, prepared); err != nil {
		if created {
			if delErr := s.chunkStore.DeleteDocument(ctx, doc.ID); delErr != nil {
				logger.Warn("Removing document %s after failed import: %v", doc.ID, delErr)
			}
		}
		return fmt.Errorf("inserting chunks: %w", err)
	}

	copy(chunks, prepared)
	logger.Debug("Imported document %s with %d chunks", doc.ID, len(prepared))
	return nil
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.chunkStore.GetDocument(ctx, documentID)
}

// List returns all documents.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.chunkStore.ListDocuments(ctx)
}

// Delete removes a document together with its chunks and embeddings.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	if err := s.chunkStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("deleting document %s: %w", documentID, err)
	}
	logger.Info("Deleted document %s", documentID)
	return nil
}

// AddChunks validates and stores chunks for an existing document.
// Chunks without an ID get a generated one. A chunk naming a different
// document is rejected. The batch is stored atomically.
func (s *DocumentService) AddChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if _, err := s.chunkStore.GetDocument(ctx, documentID); err != nil {
		return fmt.Errorf("document %s: %w", documentID, err)
	}

	prepared, err := prepareChunks(documentID, chunks)
	if err != nil {
		return err
	}

	if err := s.chunkStore.InsertChunks(ctx, prepared); err != nil {
		return fmt.Errorf("inserting chunks: %w", err)
	}

	// Report generated IDs back to the caller.
	copy(chunks, prepared)
	logger.Debug("Stored %d chunks for document %s", len(prepared), documentID)
	return nil
}

// UpdateChunk validates and replaces an existing chunk.
func (s *DocumentService) UpdateChunk(ctx context.Context, chunk domain.Chunk) error {
	chunk.ApplyDefaults()
	if err := chunk.Validate(); err != nil {
		return err
	}
	if err := s.chunkStore.UpdateChunk(ctx, chunk); err != nil {
		return fmt.Errorf("updating chunk %s: %w", chunk.ID, err)
	}
	return nil
}

// DeleteChunk removes a chunk and its embedding.
func (s *DocumentService) DeleteChunk(ctx context.Context, chunkID string) error {
	if err := s.chunkStore.DeleteChunk(ctx, chunkID); err != nil {
		return fmt.Errorf("deleting chunk %s: %w", chunkID, err)
	}
	return nil
}

// GetChunk retrieves a chunk by ID.
func (s *DocumentService) GetChunk(ctx context.Context, chunkID string) (*domain.Chunk, error) {
	return s.chunkStore.GetChunk(ctx, chunkID)
}

// GetChunks returns the chunks of a document in page order.
func (s *DocumentService) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if _, err := s.chunkStore.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.chunkStore.GetChunks(ctx, documentID)
}

// GetContent returns the concatenated content of all chunks.
func (s *DocumentService) GetContent(ctx context.Context, documentID string) (string, error) {
	chunks, err := s.GetChunks(ctx, documentID)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(chunk.Content)
	}

	return builder.String(), nil
}

func prepareDocument(doc *domain.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is required", domain.ErrInvalidInput)
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	return doc.Validate()
}

// prepareChunks returns validated copies of chunks bound to documentID,
// with defaults applied and missing ids generated.
func prepareChunks(documentID string, chunks []domain.Chunk) ([]domain.Chunk, error) {
	prepared := make([]domain.Chunk, len(chunks))
	for i, chunk := range chunks {
		if chunk.DocumentID == "" {
			chunk.DocumentID = documentID
		}
		if chunk.DocumentID != documentID {
			return nil, fmt.Errorf("%w: chunk %s belongs to document %s, not %s",
				domain.ErrInvalidInput, chunk.ID, chunk.DocumentID, documentID)
		}
		if chunk.ID == "" {
			chunk.ID = uuid.New().String()
		}
		chunk.ApplyDefaults()
		if err := chunk.Validate(); err != nil {
			return nil, err
		}
		prepared[i] = chunk
	}
	return prepared, nil
}
