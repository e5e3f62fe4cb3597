package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// IndexService maintains the lexical index.
type IndexService interface {
	// Backfill indexes existing chunks when the index is empty.
	Backfill(ctx context.Context) (domain.BackfillResult, error)

	// Rebuild clears and repopulates the index.
	Rebuild(ctx context.Context) (domain.BackfillResult, error)

	// Status reports chunk and index entry counts.
	Status(ctx context.Context) (domain.IndexStatus, error)
}
