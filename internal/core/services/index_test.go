package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
)

func TestIndexService_Backfill_Idempotent(t *testing.T) {
	store := seededStore(t)
	store.DropIndex()
	svc := NewIndexService(store)
	ctx := context.Background()

	first, err := svc.Backfill(ctx)
	require.NoError(t, err)
	assert.False(t, first.Skipped)
	assert.Equal(t, 1, first.Indexed)

	second, err := svc.Backfill(ctx)
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, 1, second.Existing)

	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.InSync())
}

func TestIndexService_Backfill_MakesChunksSearchable(t *testing.T) {
	store := seededStore(t)
	store.DropIndex()
	search := NewSearchService(store, store, nil, nil, domain.SearchSettings{})
	ctx := context.Background()

	resp, err := search.Search(ctx, domain.SearchRequest{Query: "carbon", Type: domain.SearchTypeFullText})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)

	_, err = NewIndexService(store).Backfill(ctx)
	require.NoError(t, err)

	resp, err = search.Search(ctx, domain.SearchRequest{Query: "carbon", Type: domain.SearchTypeFullText})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)
}

func TestIndexService_Backfill_Error(t *testing.T) {
	svc := NewIndexService(&mockLexicalIndex{fillErr: errors.New("database is locked")})

	_, err := svc.Backfill(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestIndexService_BackfillOnStartup_NonFatal(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	logger.SetVerbose(true)
	defer func() {
		logger.SetVerbose(false)
		logger.SetOutput(nil)
	}()

	svc := NewIndexService(&mockLexicalIndex{fillErr: errors.New("database is locked")})

	assert.NotPanics(t, func() { svc.BackfillOnStartup(context.Background()) })
	assert.Contains(t, buf.String(), "backfill failed")
}

func TestIndexService_Rebuild(t *testing.T) {
	store := seededStore(t)
	svc := NewIndexService(store)

	result, err := svc.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Existing)
	assert.Equal(t, 1, result.Indexed)
}

func TestIndexService_Status_OutOfSync(t *testing.T) {
	svc := NewIndexService(&mockLexicalIndex{status: domain.IndexStatus{Chunks: 3, Entries: 1}})

	status, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.InSync())
}

func TestIndexService_NilIndex(t *testing.T) {
	svc := NewIndexService(nil)
	ctx := context.Background()

	_, err := svc.Backfill(ctx)
	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
	_, err = svc.Rebuild(ctx)
	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
	_, err = svc.Status(ctx)
	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
}
