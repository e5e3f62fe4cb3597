package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// SearchInput is the input schema for the search_chunks tool.
type SearchInput struct {
	Query        string         `json:"query" jsonschema:"the search query"`
	Limit        int            `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10, max 100)"`
	Offset       int            `json:"offset,omitempty" jsonschema:"number of results to skip"`
	SearchType   string         `json:"search_type,omitempty" jsonschema:"one of fulltext, vector or hybrid (default hybrid)"`
	DocumentID   string         `json:"document_id,omitempty" jsonschema:"restrict results to one document"`
	VectorWeight *float64       `json:"vector_weight,omitempty" jsonschema:"weight of vector similarity in [0,1] (default 0.65)"`
	TextWeight   *float64       `json:"text_weight,omitempty" jsonschema:"weight of keyword relevance in [0,1] (default 0.35)"`
	Filters      map[string]any `json:"filters,omitempty" jsonschema:"optional filters: author, document_type, language, topics, creation_date_start, creation_date_end, min_page, max_page"`
}

// SearchOutput is the output schema for the search_chunks tool.
type SearchOutput struct {
	Query          string               `json:"query"`
	SearchType     string               `json:"search_type"`
	Results        []SearchResultOutput `json:"results"`
	Count          int                  `json:"count"`
	Degraded       bool                 `json:"degraded"`
	DegradedReason string               `json:"degraded_reason,omitempty"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ChunkID      string   `json:"chunk_id"`
	DocumentID   string   `json:"document_id"`
	Title        string   `json:"title"`
	Author       string   `json:"author"`
	PageNumber   int      `json:"page_number"`
	ChunkIndex   int      `json:"chunk_index"`
	SectionPath  []string `json:"section_path,omitempty"`
	Score        float64  `json:"score"`
	LexicalScore float64  `json:"lexical_score"`
	VectorScore  float64  `json:"vector_score"`
	Content      string   `json:"content"`
}

// GetDocumentInput is the input schema for the get_document tool.
type GetDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document identifier"`
}

// GetDocumentOutput is the output schema for the get_document tool.
type GetDocumentOutput struct {
	ID           string   `json:"id"`
	Filename     string   `json:"filename"`
	Title        string   `json:"title"`
	Author       string   `json:"author,omitempty"`
	DocumentType string   `json:"document_type,omitempty"`
	Language     string   `json:"language,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	PageCount    int      `json:"page_count"`
	Chunks       int      `json:"chunks"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_chunks",
		Description: "Search document chunks by keyword relevance and semantic similarity",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Get the metadata of a stored document",
	}, s.handleGetDocument)
}

// handleSearch handles the search_chunks tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	searchType, err := domain.ParseSearchType(input.SearchType)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	resp, err := s.ports.Search.Search(ctx, domain.SearchRequest{
		Query:        input.Query,
		DocumentID:   input.DocumentID,
		Limit:        input.Limit,
		Offset:       input.Offset,
		Type:         searchType,
		VectorWeight: input.VectorWeight,
		TextWeight:   input.TextWeight,
		Filters:      input.Filters,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Query:          resp.Query,
		SearchType:     resp.Type.String(),
		Results:        make([]SearchResultOutput, len(resp.Results)),
		Count:          resp.Count,
		Degraded:       resp.Degraded,
		DegradedReason: resp.DegradedReason,
	}

	for i := range resp.Results {
		r := &resp.Results[i]
		output.Results[i] = SearchResultOutput{
			ChunkID:      r.ChunkID,
			DocumentID:   r.DocumentID,
			Title:        r.Document.Title,
			Author:       r.Document.Author,
			PageNumber:   r.PageNumber,
			ChunkIndex:   r.ChunkIndex,
			SectionPath:  r.SectionPath,
			Score:        r.Score,
			LexicalScore: r.LexicalScore,
			VectorScore:  r.VectorScore,
			Content:      r.Content,
		}
	}

	return nil, output, nil
}

// handleGetDocument handles the get_document tool invocation.
func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDocumentInput,
) (*mcp.CallToolResult, GetDocumentOutput, error) {
	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, GetDocumentOutput{}, ErrDocumentIDRequired
	}
	if s.ports.Document == nil {
		return nil, GetDocumentOutput{}, fmt.Errorf("document %s: %w", input.DocumentID, domain.ErrNotFound)
	}

	doc, err := s.ports.Document.Get(ctx, input.DocumentID)
	if err != nil {
		return nil, GetDocumentOutput{}, err
	}

	chunks, err := s.ports.Document.GetChunks(ctx, doc.ID)
	if err != nil {
		return nil, GetDocumentOutput{}, fmt.Errorf("listing chunks: %w", err)
	}

	return nil, GetDocumentOutput{
		ID:           doc.ID,
		Filename:     doc.Filename,
		Title:        doc.Info().Title,
		Author:       doc.Author,
		DocumentType: doc.DocumentType,
		Language:     doc.Language,
		Topics:       doc.Topics,
		Summary:      doc.Summary,
		PageCount:    doc.PageCount,
		Chunks:       len(chunks),
	}, nil
}
