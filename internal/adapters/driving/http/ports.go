// Package http exposes docchat search and chunk management over a JSON
// HTTP API built on gin.
package http

import (
	"errors"

	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Errors returned when required ports are missing.
var (
	ErrMissingSearchService   = errors.New("http: search service is required")
	ErrMissingDocumentService = errors.New("http: document service is required")
)

// Ports aggregates the driving ports served by the HTTP API.
type Ports struct {
	// Search answers search requests.
	Search driving.SearchService

	// Document manages documents and their chunks.
	Document driving.DocumentService

	// Index maintains the lexical index. Optional; index routes answer 503 without it.
	Index driving.IndexService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	return nil
}
