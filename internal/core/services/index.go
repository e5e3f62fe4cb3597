package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure IndexService implements the interface.
var _ driving.IndexService = (*IndexService)(nil)

// IndexService maintains the lexical index.
type IndexService struct {
	lexicalIndex driven.LexicalIndex
}

// NewIndexService creates a new index service.
func NewIndexService(lexicalIndex driven.LexicalIndex) *IndexService {
	return &IndexService{lexicalIndex: lexicalIndex}
}

// Backfill indexes existing chunks when the index is empty.
func (s *IndexService) Backfill(ctx context.Context) (domain.BackfillResult, error) {
	if s.lexicalIndex == nil {
		return domain.BackfillResult{}, domain.ErrSearchUnavailable
	}

	result, err := s.lexicalIndex.Backfill(ctx)
	if err != nil {
		return result, fmt.Errorf("backfill: %w", err)
	}

	if result.Skipped {
		logger.Debug("Lexical index backfill skipped: %d entries present", result.Existing)
	} else {
		logger.Info("Lexical index backfill: %d indexed, %d failed", result.Indexed, result.Failed)
	}
	return result, nil
}

// BackfillOnStartup runs Backfill and logs any failure instead of
// returning it. Startup continues with whatever the index holds.
func (s *IndexService) BackfillOnStartup(ctx context.Context) {
	if _, err := s.Backfill(ctx); err != nil {
		logger.Warn("Lexical index backfill failed, continuing: %v", err)
	}
}

// Rebuild clears and repopulates the index.
func (s *IndexService) Rebuild(ctx context.Context) (domain.BackfillResult, error) {
	if s.lexicalIndex == nil {
		return domain.BackfillResult{}, domain.ErrSearchUnavailable
	}

	logger.Section("Lexical Index Rebuild")
	result, err := s.lexicalIndex.Rebuild(ctx)
	if err != nil {
		return result, fmt.Errorf("rebuild: %w", err)
	}

	logger.Info("Lexical index rebuilt: %d indexed, %d failed (was %d)", result.Indexed, result.Failed, result.Existing)
	return result, nil
}

// Status reports chunk and index entry counts.
func (s *IndexService) Status(ctx context.Context) (domain.IndexStatus, error) {
	if s.lexicalIndex == nil {
		return domain.IndexStatus{}, domain.ErrSearchUnavailable
	}

	status, err := s.lexicalIndex.Status(ctx)
	if err != nil {
		return status, fmt.Errorf("index status: %w", err)
	}
	if !status.InSync() {
		logger.Warn("Lexical index out of sync: %d chunks, %d entries", status.Chunks, status.Entries)
	}
	return status, nil
}
