package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// SearchService provides search capabilities to external actors.
type SearchService interface {
	// Search validates the request, runs the selected retrieval signals and
	// returns the fused, paginated response.
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
}
