package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

const (
	uriScheme    = "docchat://"
	documentsURI = uriScheme + "documents"

	mimeJSON = "application/json"
	mimeText = "text/plain"
)

// documentSummary is one entry of the documents resource.
type documentSummary struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	PageCount int    `json:"page_count"`
	URI       string `json:"uri"`
}

// chunkSummary is one entry of a document's chunks resource.
type chunkSummary struct {
	ID           string   `json:"id"`
	PageNumber   int      `json:"page_number"`
	ChunkIndex   int      `json:"chunk_index"`
	ContentType  string   `json:"content_type,omitempty"`
	SectionPath  []string `json:"section_path,omitempty"`
	HasEmbedding bool     `json:"has_embedding"`
	Content      string   `json:"content"`
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         documentsURI,
		Name:        "documents",
		Description: "Every stored document with its title and page count",
		MIMEType:    mimeJSON,
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentsURI + "/{documentId}",
		Name:        "document-content",
		Description: "Full text of a document, chunks joined in page order",
		MIMEType:    mimeText,
	}, s.handleDocumentContentResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentsURI + "/{documentId}/chunks",
		Name:        "document-chunks",
		Description: "Chunks of a document with their page positions and section paths",
		MIMEType:    mimeJSON,
	}, s.handleDocumentChunksResource)
}

func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Document == nil {
		return textResource(req.Params.URI, mimeJSON, "[]"), nil
	}

	docs, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	out := make([]documentSummary, 0, len(docs))
	for i := range docs {
		d := &docs[i]
		out = append(out, documentSummary{
			ID:        d.ID,
			Filename:  d.Filename,
			Title:     d.Info().Title,
			Author:    d.Author,
			PageCount: d.PageCount,
			URI:       documentURI(d.ID),
		})
	}
	return jsonResource(req.Params.URI, out)
}

func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID, view := parseDocumentURI(req.Params.URI)
	if s.ports.Document == nil || docID == "" || view != "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	content, err := s.ports.Document.GetContent(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting document content: %w", err)
	}
	return textResource(req.Params.URI, mimeText, content), nil
}

func (s *Server) handleDocumentChunksResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID, view := parseDocumentURI(req.Params.URI)
	if s.ports.Document == nil || docID == "" || view != "chunks" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	chunks, err := s.ports.Document.GetChunks(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}

	out := make([]chunkSummary, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		out = append(out, chunkSummary{
			ID:           c.ID,
			PageNumber:   c.PageNumber,
			ChunkIndex:   c.ChunkIndex,
			ContentType:  c.ContentType,
			SectionPath:  c.SectionPath,
			HasEmbedding: len(c.Embedding) > 0,
			Content:      c.Content,
		})
	}
	return jsonResource(req.Params.URI, out)
}

func textResource(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mimeType, Text: text}},
	}
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", uri, err)
	}
	return textResource(uri, mimeJSON, string(data)), nil
}

// documentURI builds the content URI of a document. The id is escaped so
// ids containing slashes stay one path segment.
func documentURI(id string) string {
	return documentsURI + "/" + url.PathEscape(id)
}

// parseDocumentURI splits docchat://documents/{id}[/{view}] into the
// unescaped id and the optional view. Anything else yields an empty id.
func parseDocumentURI(uri string) (id, view string) {
	rest, ok := strings.CutPrefix(uri, documentsURI+"/")
	if !ok || rest == "" {
		return "", ""
	}

	segment, view, _ := strings.Cut(rest, "/")
	if strings.Contains(view, "/") {
		return "", ""
	}
	id, err := url.PathUnescape(segment)
	if err != nil || id == "" {
		return "", ""
	}
	return id, view
}
