// Package mcp serves docchat search and documents to AI assistants over the
// Model Context Protocol.
package mcp

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

var (
	// ErrMissingSearchService is returned by NewServer without a search port.
	ErrMissingSearchService = errors.New("mcp: search service is required")

	// ErrDocumentIDRequired is returned by get_document for a blank id.
	ErrDocumentIDRequired = fmt.Errorf("mcp: document_id is required: %w", domain.ErrInvalidInput)
)
