package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// LexicalIndex provides full-text search over chunk content.
// Backed by SQLite FTS5 with BM25 ranking.
type LexicalIndex interface {
	// Search performs a keyword search restricted by the filter and returns
	// up to limit candidates with scores normalised to [0,1].
	Search(ctx context.Context, query string, filter domain.SearchFilter, limit int) ([]domain.Candidate, error)

	// Backfill populates the index from all existing chunks. It is a no-op
	// when the index already holds entries.
	Backfill(ctx context.Context) (domain.BackfillResult, error)

	// Rebuild clears the index and repopulates it from the chunk table.
	Rebuild(ctx context.Context) (domain.BackfillResult, error)

	// Status compares the number of chunks with the number of index entries.
	Status(ctx context.Context) (domain.IndexStatus, error)
}
