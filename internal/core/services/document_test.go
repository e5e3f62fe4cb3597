package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

func newDocumentFixture(t *testing.T) (*DocumentService, *memory.ChunkStore) {
	t.Helper()
	store := memory.NewChunkStore()
	svc := NewDocumentService(store)
	require.NoError(t, svc.Save(context.Background(), &domain.Document{ID: "doc-1", Title: "Test Doc"}))
	return svc, store
}

func TestDocumentService_SaveAndGet(t *testing.T) {
	svc, _ := newDocumentFixture(t)
	ctx := context.Background()

	doc, err := svc.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Test Doc", doc.Title)

	generated := &domain.Document{Title: "No ID"}
	require.NoError(t, svc.Save(ctx, generated))
	assert.NotEmpty(t, generated.ID)

	docs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestDocumentService_Save_Invalid(t *testing.T) {
	svc, _ := newDocumentFixture(t)

	assert.ErrorIs(t, svc.Save(context.Background(), nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.Save(context.Background(), &domain.Document{ID: "d", PageCount: -1}), domain.ErrInvalidInput)
}

func TestDocumentService_AddChunks_AppliesDefaults(t *testing.T) {
	svc, store := newDocumentFixture(t)
	ctx := context.Background()

	chunks := []domain.Chunk{
		{PageNumber: 1, ChunkIndex: 0, Content: "First paragraph."},
		{ID: "chunk-2", PageNumber: 1, ChunkIndex: 1, Content: "Second paragraph.", ContentType: "table", Importance: ptr(0.9)},
	}
	require.NoError(t, svc.AddChunks(ctx, "doc-1", chunks))

	assert.NotEmpty(t, chunks[0].ID)
	stored, err := store.GetChunk(ctx, chunks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", stored.DocumentID)
	assert.Equal(t, domain.DefaultContentType, stored.ContentType)
	assert.InDelta(t, domain.DefaultImportance, stored.Weight(), 1e-9)

	second, err := store.GetChunk(ctx, "chunk-2")
	require.NoError(t, err)
	assert.Equal(t, "table", second.ContentType)
	assert.InDelta(t, 0.9, second.Weight(), 1e-9)
}

func TestDocumentService_AddChunks_Rejects(t *testing.T) {
	svc, store := newDocumentFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		docID  string
		chunks []domain.Chunk
		want   error
	}{
		{"unknown document", "missing", []domain.Chunk{{Content: "x"}}, domain.ErrNotFound},
		{"empty content", "doc-1", []domain.Chunk{{Content: "  "}}, domain.ErrInvalidInput},
		{"negative page", "doc-1", []domain.Chunk{{Content: "x", PageNumber: -1}}, domain.ErrInvalidInput},
		{"importance out of range", "doc-1", []domain.Chunk{{Content: "x", Importance: ptr(1.5)}}, domain.ErrInvalidInput},
		{"foreign document", "doc-1", []domain.Chunk{{Content: "x", DocumentID: "doc-2"}}, domain.ErrInvalidInput},
		{"one bad chunk rejects batch", "doc-1", []domain.Chunk{{Content: "ok"}, {Content: ""}}, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.AddChunks(ctx, tt.docID, tt.chunks)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	count, err := store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDocumentService_Import(t *testing.T) {
	svc, store := newDocumentFixture(t)
	ctx := context.Background()

	doc := &domain.Document{Title: "Ocean Survey"}
	chunks := []domain.Chunk{
		{PageNumber: 1, Content: "Ocean carbon uptake"},
		{PageNumber: 2, Content: "Coral reefs", Importance: ptr(0.0)},
	}
	require.NoError(t, svc.Import(ctx, doc, chunks))

	assert.NotEmpty(t, doc.ID)
	assert.NotEmpty(t, chunks[0].ID)
	stored, err := store.GetChunks(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, doc.ID, stored[1].DocumentID)
	assert.Zero(t, stored[1].Weight())
}

func TestDocumentService_Import_RejectedChunksLeaveNoDocument(t *testing.T) {
	svc, store := newDocumentFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.AddChunks(ctx, "doc-1", []domain.Chunk{{ID: "taken", Content: "x"}}))

	tests := []struct {
		name   string
		docID  string
		chunks []domain.Chunk
		want   error
	}{
		{"invalid chunk", "doc-2", []domain.Chunk{{Content: "ok"}, {Content: " "}}, domain.ErrInvalidInput},
		{"foreign chunk", "doc-3", []domain.Chunk{{Content: "x", DocumentID: "doc-1"}}, domain.ErrInvalidInput},
		{"conflicting id", "doc-4", []domain.Chunk{{ID: "taken", Content: "x"}}, domain.ErrAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Import(ctx, &domain.Document{ID: tt.docID}, tt.chunks)
			assert.ErrorIs(t, err, tt.want)

			_, err = svc.Get(ctx, tt.docID)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDocumentService_Import_ExistingDocumentKept(t *testing.T) {
	svc, store := newDocumentFixture(t)
	ctx := context.Background()
	require.NoError(t, svc.AddChunks(ctx, "doc-1", []domain.Chunk{{ID: "taken", Content: "x"}}))

	err := svc.Import(ctx, &domain.Document{ID: "doc-1", Title: "Renamed"}, []domain.Chunk{{ID: "taken", PageNumber: 4, Content: "y"}})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = svc.Get(ctx, "doc-1")
	require.NoError(t, err)
	count, err := store.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDocumentService_Import_NilDocument(t *testing.T) {
	svc, _ := newDocumentFixture(t)
	assert.ErrorIs(t, svc.Import(context.Background(), nil, nil), domain.ErrInvalidInput)
}

func TestDocumentService_AddChunks_Empty(t *testing.T) {
	svc, _ := newDocumentFixture(t)
	assert.NoError(t, svc.AddChunks(context.Background(), "missing", nil))
}

func TestDocumentService_UpdateAndDeleteChunk(t *testing.T) {
	svc, store := newDocumentFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.AddChunks(ctx, "doc-1", []domain.Chunk{{ID: "c1", Content: "old text about wind"}}))

	chunk, err := svc.GetChunk(ctx, "c1")
	require.NoError(t, err)
	chunk.Content = "new text about tides"
	require.NoError(t, svc.UpdateChunk(ctx, *chunk))

	hits, err := store.Search(ctx, "wind", domain.SearchFilter{}, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	hits, err = store.Search(ctx, "tides", domain.SearchFilter{}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	chunk.Content = ""
	assert.ErrorIs(t, svc.UpdateChunk(ctx, *chunk), domain.ErrInvalidInput)

	require.NoError(t, svc.DeleteChunk(ctx, "c1"))
	assert.ErrorIs(t, svc.DeleteChunk(ctx, "c1"), domain.ErrNotFound)
	_, err = svc.GetChunk(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_UpdateChunk_NotFound(t *testing.T) {
	svc, _ := newDocumentFixture(t)

	err := svc.UpdateChunk(context.Background(), domain.Chunk{ID: "nope", DocumentID: "doc-1", Content: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_GetContent(t *testing.T) {
	svc, _ := newDocumentFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.AddChunks(ctx, "doc-1", []domain.Chunk{
		{ID: "c2", PageNumber: 2, ChunkIndex: 0, Content: "Third."},
		{ID: "c1", PageNumber: 1, ChunkIndex: 1, Content: "Second."},
		{ID: "c0", PageNumber: 1, ChunkIndex: 0, Content: "First."},
	}))

	content, err := svc.GetContent(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "First.\nSecond.\nThird.", content)

	_, err = svc.GetContent(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_Delete_Cascades(t *testing.T) {
	svc, store := newDocumentFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.AddChunks(ctx, "doc-1", []domain.Chunk{{ID: "c1", Content: "carbon"}}))
	require.NoError(t, svc.Delete(ctx, "doc-1"))

	_, err := svc.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetChunk(ctx, "c1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, "doc-1"), domain.ErrNotFound)
}
