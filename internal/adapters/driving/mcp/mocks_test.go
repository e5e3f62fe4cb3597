package mcp

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	response *domain.SearchResponse
	err      error
	lastReq  domain.SearchRequest
}

func (m *mockSearchService) Search(_ context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if m.response == nil {
		return &domain.SearchResponse{Query: req.Query, Type: req.Type, Results: []domain.SearchResult{}}, nil
	}
	return m.response, nil
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	chunks    []domain.Chunk
	content   string
	err       error
}

func (m *mockDocumentService) Save(_ context.Context, _ *domain.Document) error {
	return m.err
}

func (m *mockDocumentService) Import(_ context.Context, _ *domain.Document, _ []domain.Chunk) error {
	return m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockDocumentService) AddChunks(_ context.Context, _ string, _ []domain.Chunk) error {
	return m.err
}

func (m *mockDocumentService) UpdateChunk(_ context.Context, _ domain.Chunk) error {
	return m.err
}

func (m *mockDocumentService) DeleteChunk(_ context.Context, _ string) error {
	return m.err
}

func (m *mockDocumentService) GetChunk(_ context.Context, _ string) (*domain.Chunk, error) {
	if len(m.chunks) == 0 {
		return nil, m.err
	}
	return &m.chunks[0], m.err
}

func (m *mockDocumentService) GetChunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

func (m *mockDocumentService) GetContent(_ context.Context, _ string) (string, error) {
	return m.content, m.err
}
