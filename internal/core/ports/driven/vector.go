package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// VectorIndex provides semantic similarity search over precomputed
// chunk embeddings. Embeddings are produced out-of-band.
type VectorIndex interface {
	// Add stores or replaces the embedding of a chunk.
	Add(ctx context.Context, chunkID string, embedding []float32) error

	// Delete removes the embedding of a chunk.
	Delete(ctx context.Context, chunkID string) error

	// Search finds the k most similar chunks to the query vector among the
	// chunks matching the filter. Similarity is in [0,1].
	Search(ctx context.Context, query []float32, k int, filter domain.SearchFilter) ([]domain.Candidate, error)
}
