package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ChunkStore persists documents and their chunks.
// Every chunk mutation keeps the lexical index in step inside the same
// unit of work: when the index cannot be updated, the mutation fails
// with domain.ErrIndexSync and nothing is written.
type ChunkStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents ordered by creation time.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document and cascades to its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// InsertChunks stores new chunks in a single unit of work.
	InsertChunks(ctx context.Context, chunks []domain.Chunk) error

	// UpdateChunk replaces an existing chunk.
	UpdateChunk(ctx context.Context, chunk domain.Chunk) error

	// DeleteChunk removes a chunk.
	DeleteChunk(ctx context.Context, id string) error

	// GetChunk retrieves a specific chunk by ID.
	GetChunk(ctx context.Context, id string) (*domain.Chunk, error)

	// GetChunks retrieves all chunks for a document ordered by page and index.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// GetChunksByIDs retrieves the chunks with the given IDs.
	// Missing IDs are absent from the returned map.
	GetChunksByIDs(ctx context.Context, ids []string) (map[string]domain.Chunk, error)

	// CountChunks returns the number of live chunks.
	CountChunks(ctx context.Context) (int, error)
}
