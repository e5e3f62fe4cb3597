package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// searchRequest is the JSON body of POST /search.
type searchRequest struct {
	Query        string         `json:"query"`
	DocumentID   string         `json:"document_id"`
	Limit        int            `json:"limit"`
	Offset       int            `json:"offset"`
	SearchType   string         `json:"search_type"`
	VectorWeight *float64       `json:"vector_weight"`
	TextWeight   *float64       `json:"text_weight"`
	Filters      map[string]any `json:"filters"`
}

// saveDocumentRequest is the JSON body of POST /documents. Chunks are
// optional and stored after the document in one batch.
type saveDocumentRequest struct {
	domain.Document
	Chunks []domain.Chunk `json:"chunks,omitempty"`
}

// addChunksRequest is the JSON body of POST /documents/:id/chunks.
type addChunksRequest struct {
	Chunks []domain.Chunk `json:"chunks"`
}

type healthResponse struct {
	Status  string              `json:"status"`
	Version string              `json:"version"`
	Index   *domain.IndexStatus `json:"index,omitempty"`
	InSync  *bool               `json:"in_sync,omitempty"`
}

// bindJSON decodes the request body, reporting malformed input as ErrInvalidInput.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		writeError(c, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return false
	}
	return true
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := healthResponse{Status: "ok", Version: s.version}
	if s.ports.Index != nil {
		if status, err := s.ports.Index.Status(c.Request.Context()); err == nil {
			inSync := status.InSync()
			resp.Index = &status
			resp.InSync = &inSync
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSearch(c *gin.Context) {
	var body searchRequest
	if !bindJSON(c, &body) {
		return
	}

	searchType, err := domain.ParseSearchType(body.SearchType)
	if err != nil {
		writeError(c, err)
		return
	}

	resp, err := s.ports.Search.Search(c.Request.Context(), domain.SearchRequest{
		Query:        body.Query,
		DocumentID:   body.DocumentID,
		Limit:        body.Limit,
		Offset:       body.Offset,
		Type:         searchType,
		VectorWeight: body.VectorWeight,
		TextWeight:   body.TextWeight,
		Filters:      body.Filters,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ==================== Documents ====================

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.ports.Document.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

func (s *Server) handleSaveDocument(c *gin.Context) {
	var body saveDocumentRequest
	if !bindJSON(c, &body) {
		return
	}

	ctx := c.Request.Context()
	doc := body.Document
	if err := s.ports.Document.Import(ctx, &doc, body.Chunks); err != nil {
		writeError(c, err)
		return
	}

	saved, err := s.ports.Document.Get(ctx, doc.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (s *Server) handleGetDocument(c *gin.Context) {
	doc, err := s.ports.Document.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	if err := s.ports.Document.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetContent(c *gin.Context) {
	content, err := s.ports.Document.GetContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.String(http.StatusOK, content)
}

// ==================== Chunks ====================

func (s *Server) handleListChunks(c *gin.Context) {
	chunks, err := s.ports.Document.GetChunks(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if chunks == nil {
		chunks = []domain.Chunk{}
	}
	c.JSON(http.StatusOK, gin.H{"chunks": chunks, "count": len(chunks)})
}

func (s *Server) handleAddChunks(c *gin.Context) {
	var body addChunksRequest
	if !bindJSON(c, &body) {
		return
	}
	if len(body.Chunks) == 0 {
		writeError(c, fmt.Errorf("%w: no chunks supplied", domain.ErrInvalidInput))
		return
	}

	if err := s.ports.Document.AddChunks(c.Request.Context(), c.Param("id"), body.Chunks); err != nil {
		writeError(c, err)
		return
	}

	ids := make([]string, len(body.Chunks))
	for i := range body.Chunks {
		ids[i] = body.Chunks[i].ID
	}
	c.JSON(http.StatusCreated, gin.H{"chunk_ids": ids, "count": len(ids)})
}

func (s *Server) handleGetChunk(c *gin.Context) {
	chunk, err := s.ports.Document.GetChunk(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, chunk)
}

// handleUpdateChunk replaces a chunk. The id comes from the path; a body
// without a document id keeps the chunk's current document.
func (s *Server) handleUpdateChunk(c *gin.Context) {
	var chunk domain.Chunk
	if !bindJSON(c, &chunk) {
		return
	}

	ctx := c.Request.Context()
	chunk.ID = c.Param("id")
	if chunk.DocumentID == "" {
		existing, err := s.ports.Document.GetChunk(ctx, chunk.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		chunk.DocumentID = existing.DocumentID
	}

	if err := s.ports.Document.UpdateChunk(ctx, chunk); err != nil {
		writeError(c, err)
		return
	}

	updated, err := s.ports.Document.GetChunk(ctx, chunk.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteChunk(c *gin.Context) {
	if err := s.ports.Document.DeleteChunk(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ==================== Index ====================

func (s *Server) handleIndexStatus(c *gin.Context) {
	if s.ports.Index == nil {
		writeError(c, domain.ErrSearchUnavailable)
		return
	}
	status, err := s.ports.Index.Status(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chunks": status.Chunks, "entries": status.Entries, "in_sync": status.InSync()})
}

func (s *Server) handleBackfill(c *gin.Context) {
	if s.ports.Index == nil {
		writeError(c, domain.ErrSearchUnavailable)
		return
	}
	result, err := s.ports.Index.Backfill(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRebuild(c *gin.Context) {
	if s.ports.Index == nil {
		writeError(c, domain.ErrSearchUnavailable)
		return
	}
	result, err := s.ports.Index.Rebuild(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
