package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// DocumentService manages stored documents and their chunks.
type DocumentService interface {
	// Save stores or updates a document.
	Save(ctx context.Context, doc *domain.Document) error

	// Import stores a document and its chunks, validating every chunk
	// before writing. A document it created is removed if the chunks fail.
	Import(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns all documents.
	List(ctx context.Context) ([]domain.Document, error)

	// Delete removes a document together with its chunks and embeddings.
	Delete(ctx context.Context, documentID string) error

	// AddChunks validates and stores chunks for an existing document.
	AddChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// UpdateChunk validates and replaces an existing chunk.
	UpdateChunk(ctx context.Context, chunk domain.Chunk) error

	// DeleteChunk removes a chunk and its embedding.
	DeleteChunk(ctx context.Context, chunkID string) error

	// GetChunk retrieves a chunk by ID.
	GetChunk(ctx context.Context, chunkID string) (*domain.Chunk, error)

	// GetChunks returns the chunks of a document in page order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetContent returns the concatenated content of all chunks.
	GetContent(ctx context.Context, documentID string) (string, error)
}
