package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/services"
)

// failingSearchService returns a fixed error from every search.
type failingSearchService struct {
	err error
}

func (f *failingSearchService) Search(_ context.Context, _ domain.SearchRequest) (*domain.SearchResponse, error) {
	return nil, f.err
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	store := memory.NewChunkStore()
	server, err := NewServer(&Ports{
		Search:   services.NewSearchService(store, store, nil, nil, domain.SearchSettings{}),
		Document: services.NewDocumentService(store),
		Index:    services.NewIndexService(store),
	}, "test")
	require.NoError(t, err)
	return server
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// seedDocument stores a report with three chunks through the API.
func seedDocument(t *testing.T, s *Server) {
	t.Helper()

	w := doRequest(t, s, http.MethodPost, "/documents", map[string]any{
		"id":       "doc-1",
		"filename": "climate.pdf",
		"title":    "Climate Report",
		"author":   "Ada Lovelace",
		"chunks": []map[string]any{
			{"id": "c1", "page_number": 1, "chunk_index": 0, "content": "Carbon emissions rose sharply"},
			{"id": "c2", "page_number": 1, "chunk_index": 1, "content": "Renewable energy adoption"},
			{"id": "c3", "page_number": 2, "chunk_index": 0, "content": "Carbon capture and carbon storage"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestNewServer(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{}, "test")
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("nil document service returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{Search: &failingSearchService{}}, "test")
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingDocumentService)
	})
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	seedDocument(t, s)

	w := doRequest(t, s, http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[healthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
	require.NotNil(t, resp.Index)
	assert.Equal(t, 3, resp.Index.Chunks)
	require.NotNil(t, resp.InSync)
	assert.True(t, *resp.InSync)
}

func TestSearch(t *testing.T) {
	s := newTestServer(t)
	seedDocument(t, s)

	t.Run("fulltext search finds lexical hits", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPost, "/search", map[string]any{
			"query":       "carbon",
			"search_type": "fulltext",
		})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[domain.SearchResponse](t, w)
		assert.Equal(t, "carbon", resp.Query)
		assert.Equal(t, domain.SearchTypeFullText, resp.Type)
		assert.Equal(t, 2, resp.Count)
		require.Len(t, resp.Results, 2)
		assert.Equal(t, "c3", resp.Results[0].ChunkID)
		assert.Equal(t, "Climate Report", resp.Results[0].Document.Title)
		assert.False(t, resp.Degraded)
	})

	t.Run("hybrid search without embeddings is degraded", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPost, "/search", map[string]any{"query": "renewable"})

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[domain.SearchResponse](t, w)
		assert.Equal(t, domain.SearchTypeHybrid, resp.Type)
		assert.True(t, resp.Degraded)
		assert.NotEmpty(t, resp.DegradedReason)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "c2", resp.Results[0].ChunkID)
	})

	t.Run("offset beyond candidates returns empty page with count", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPost, "/search", map[string]any{
			"query":       "carbon",
			"search_type": "fulltext",
			"limit":       5,
			"offset":      10,
		})

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[domain.SearchResponse](t, w)
		assert.Empty(t, resp.Results)
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("filters are applied", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPost, "/search", map[string]any{
			"query":       "carbon",
			"search_type": "fulltext",
			"filters":     map[string]any{"author": "grace"},
		})

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[domain.SearchResponse](t, w)
		assert.Empty(t, resp.Results)
	})

	tests := []struct {
		name string
		body any
	}{
		{name: "blank query", body: map[string]any{"query": "   "}},
		{name: "unknown search type", body: map[string]any{"query": "carbon", "search_type": "semantic"}},
		{name: "negative offset", body: map[string]any{"query": "carbon", "offset": -1}},
		{name: "malformed body", body: `{"query": `},
	}
	for _, tt := range tests {
		t.Run(tt.name+" is rejected", func(t *testing.T) {
			w := doRequest(t, s, http.MethodPost, "/search", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decode[errorResponse](t, w)
			assert.Contains(t, resp.Error, "invalid input")
		})
	}
}

func TestSearch_InternalErrorsHideDetail(t *testing.T) {
	server, err := NewServer(&Ports{
		Search:   &failingSearchService{err: errors.New("disk on fire")},
		Document: services.NewDocumentService(memory.NewChunkStore()),
	}, "test")
	require.NoError(t, err)

	w := doRequest(t, server, http.MethodPost, "/search", map[string]any{"query": "carbon"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "disk on fire")
}

func TestDocuments(t *testing.T) {
	s := newTestServer(t)
	seedDocument(t, s)

	t.Run("list", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/documents", nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[struct {
			Documents []domain.Document `json:"documents"`
			Count     int               `json:"count"`
		}](t, w)
		assert.Equal(t, 1, resp.Count)
		assert.Equal(t, "doc-1", resp.Documents[0].ID)
	})

	t.Run("get", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/documents/doc-1", nil)

		require.Equal(t, http.StatusOK, w.Code)
		doc := decode[domain.Document](t, w)
		assert.Equal(t, "Ada Lovelace", doc.Author)
	})

	t.Run("get missing document", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/documents/missing", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("content in page order", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/documents/doc-1/content", nil)

		require.Equal(t, http.StatusOK, w.Code)
		lines := strings.Split(w.Body.String(), "\n")
		require.Len(t, lines, 3)
		assert.Equal(t, "Carbon emissions rose sharply", lines[0])
	})

	t.Run("list chunks", func(t *testing.T) {
		w := doRequest(t, s, http.MethodGet, "/documents/doc-1/chunks", nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[struct {
			Chunks []domain.Chunk `json:"chunks"`
		}](t, w)
		require.Len(t, resp.Chunks, 3)
		assert.Equal(t, domain.DefaultContentType, resp.Chunks[0].ContentType)
		assert.InDelta(t, domain.DefaultImportance, resp.Chunks[0].Weight(), 1e-9)
	})

	t.Run("negative page count is rejected", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPost, "/documents", map[string]any{"filename": "a.pdf", "page_count": -1})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("delete cascades", func(t *testing.T) {
		w := doRequest(t, s, http.MethodDelete, "/documents/doc-1", nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = doRequest(t, s, http.MethodGet, "/chunks/c1", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = doRequest(t, s, http.MethodPost, "/search", map[string]any{"query": "carbon", "search_type": "fulltext"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, decode[domain.SearchResponse](t, w).Results)
	})
}

func TestSaveDocument_RejectedChunksLeaveNoDocument(t *testing.T) {
	s := newTestServer(t)
	seedDocument(t, s)

	t.Run("invalid chunk", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPost, "/documents", map[string]any{
			"id":       "doc-2",
			"filename": "ocean.pdf",
			"chunks": []map[string]any{
				{"page_number": 1, "content": "Ocean carbon uptake"},
				{"page_number": 2, "content": "   "},
			},
		})
		require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

		w = doRequest(t, s, http.MethodGet, "/documents/doc-2", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("conflicting chunk id", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPost, "/documents", map[string]any{
			"id":       "doc-3",
			"filename": "tides.pdf",
			"chunks":   []map[string]any{{"id": "c1", "page_number": 1, "content": "Tidal power"}},
		})
		require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

		w = doRequest(t, s, http.MethodGet, "/documents/doc-3", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = doRequest(t, s, http.MethodGet, "/documents", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, decode[struct {
			Count int `json:"count"`
		}](t, w).Count)
	})

	t.Run("existing document survives a rejected update", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPost, "/documents", map[string]any{
			"id":       "doc-1",
			"filename": "climate.pdf",
			"chunks":   []map[string]any{{"id": "c1", "page_number": 5, "content": "dup"}},
		})
		require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

		w = doRequest(t, s, http.MethodGet, "/documents/doc-1/chunks", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[struct {
			Chunks []domain.Chunk `json:"chunks"`
		}](t, w).Chunks, 3)
	})
}

func TestChunks(t *testing.T) {
	s := newTestServer(t)
	seedDocument(t, s)

	t.Run("add generates ids", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPost, "/documents/doc-1/chunks", map[string]any{
			"chunks": []map[string]any{{"page_number": 3, "chunk_index": 0, "content": "Methane levels"}},
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decode[struct {
			ChunkIDs []string `json:"chunk_ids"`
		}](t, w)
		require.Len(t, resp.ChunkIDs, 1)
		assert.NotEmpty(t, resp.ChunkIDs[0])
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPost, "/documents/doc-1/chunks", map[string]any{
			"chunks": []map[string]any{{"id": "c1", "page_number": 9, "content": "dup"}},
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown document", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPost, "/documents/nope/chunks", map[string]any{
			"chunks": []map[string]any{{"content": "orphan"}},
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("empty batch is rejected", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPost, "/documents/doc-1/chunks", map[string]any{"chunks": []any{}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("update is searchable immediately", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPut, "/chunks/c2", map[string]any{
			"page_number": 1,
			"chunk_index": 1,
			"content":     "Geothermal energy adoption",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		chunk := decode[domain.Chunk](t, w)
		assert.Equal(t, "doc-1", chunk.DocumentID)

		w = doRequest(t, s, http.MethodPost, "/search", map[string]any{"query": "geothermal", "search_type": "fulltext"})
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[domain.SearchResponse](t, w)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "c2", resp.Results[0].ChunkID)
	})

	t.Run("update missing chunk", func(t *testing.T) {
		w := doRequest(t, s, http.MethodPut, "/chunks/missing", map[string]any{"content": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		w := doRequest(t, s, http.MethodDelete, "/chunks/c3", nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = doRequest(t, s, http.MethodDelete, "/chunks/c3", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestIndexRoutes(t *testing.T) {
	s := newTestServer(t)
	seedDocument(t, s)

	w := doRequest(t, s, http.MethodGet, "/index/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[map[string]any](t, w)
	assert.Equal(t, true, status["in_sync"])

	w = doRequest(t, s, http.MethodPost, "/index/backfill", nil)
	require.Equal(t, http.StatusOK, w.Code)
	backfill := decode[domain.BackfillResult](t, w)
	assert.True(t, backfill.Skipped)
	assert.Equal(t, 3, backfill.Existing)

	w = doRequest(t, s, http.MethodPost, "/index/rebuild", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rebuild := decode[domain.BackfillResult](t, w)
	assert.Equal(t, 3, rebuild.Indexed)
}

func TestIndexRoutes_WithoutIndexService(t *testing.T) {
	store := memory.NewChunkStore()
	server, err := NewServer(&Ports{
		Search:   &failingSearchService{},
		Document: services.NewDocumentService(store),
	}, "test")
	require.NoError(t, err)

	w := doRequest(t, server, http.MethodGet, "/index/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: domain.ErrInvalidInput, want: http.StatusBadRequest},
		{err: domain.ErrNotFound, want: http.StatusNotFound},
		{err: domain.ErrAlreadyExists, want: http.StatusConflict},
		{err: domain.ErrSearchUnavailable, want: http.StatusServiceUnavailable},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
