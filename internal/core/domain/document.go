package domain

import (
	"fmt"
	"strings"
	"time"
)

// Default chunk attribute values.
const (
	// DefaultContentType is assigned to chunks that carry no content type.
	DefaultContentType = "text"

	// DefaultImportance is assigned to chunks that carry no importance weight.
	DefaultImportance = 0.5
)

// Document represents a processed document with metadata.
// Documents are produced by the external processing pipeline; docchat
// stores them so chunks have an owner and searches can filter on them.
type Document struct {
	// ID is the unique identifier for the document.
	ID string `json:"id"`

	// Filename is the name of the uploaded file.
	Filename string `json:"filename"`

	// Title is the human-readable title.
	Title string `json:"title,omitempty"`

	// Author is the document author, if known.
	Author string `json:"author,omitempty"`

	// DocumentType is a coarse classification (e.g. "report", "paper").
	DocumentType string `json:"document_type,omitempty"`

	// Language is the detected document language.
	Language string `json:"language,omitempty"`

	// Topics are the extracted topic labels.
	Topics []string `json:"topics,omitempty"`

	// Summary is a short abstract of the document.
	Summary string `json:"summary,omitempty"`

	// PageCount is the number of pages in the source file.
	PageCount int `json:"page_count"`

	// CreationDate is the authoring date embedded in the file, if any.
	CreationDate *time.Time `json:"creation_date,omitempty"`

	// CreatedAt is when the document was first stored.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the document carries an identifier.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	if d.PageCount < 0 {
		return fmt.Errorf("%w: page count must be non-negative", ErrInvalidInput)
	}
	return nil
}

// Info returns the summary attached to search results. Missing fields
// read "Unknown". A nil document yields an all-unknown summary.
func (d *Document) Info() DocumentInfo {
	info := DocumentInfo{Title: unknownDescription, Author: unknownDescription, DocumentType: unknownDescription}
	if d == nil {
		return info
	}
	if d.Title != "" {
		info.Title = d.Title
	} else if d.Filename != "" {
		info.Title = d.Filename
	}
	if d.Author != "" {
		info.Author = d.Author
	}
	if d.DocumentType != "" {
		info.DocumentType = d.DocumentType
	}
	return info
}

// Chunk represents a searchable unit within a document.
// (DocumentID, PageNumber, ChunkIndex) is unique across the store.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string `json:"id"`

	// DocumentID links to the owning Document.
	DocumentID string `json:"document_id"`

	// PageNumber is the page the chunk was extracted from.
	PageNumber int `json:"page_number"`

	// ChunkIndex orders chunks within a page.
	ChunkIndex int `json:"chunk_index"`

	// Content is the text content of this chunk.
	Content string `json:"content"`

	// ContentType tags the kind of content (e.g. "text", "table").
	ContentType string `json:"content_type"`

	// SectionPath is the heading trail leading to this chunk.
	SectionPath []string `json:"section_path,omitempty"`

	// TokenCount is an optional token-count estimate.
	TokenCount *int `json:"token_count,omitempty"`

	// Importance is a weight in [0,1]. Nil means unset; an explicit zero
	// is kept.
	Importance *float64 `json:"importance,omitempty"`

	// Embedding is the precomputed vector representation, if any.
	Embedding []float32 `json:"embedding,omitempty"`
}

// ApplyDefaults fills in the content type and importance when unset.
func (c *Chunk) ApplyDefaults() {
	if c.ContentType == "" {
		c.ContentType = DefaultContentType
	}
	if c.Importance == nil {
		importance := DefaultImportance
		c.Importance = &importance
	}
}

// Weight returns the chunk's importance, or DefaultImportance when unset.
func (c *Chunk) Weight() float64 {
	if c.Importance == nil {
		return DefaultImportance
	}
	return *c.Importance
}

// Validate checks the chunk invariants that do not require storage access.
func (c *Chunk) Validate() error {
	switch {
	case strings.TrimSpace(c.ID) == "":
		return fmt.Errorf("%w: chunk id is required", ErrInvalidInput)
	case strings.TrimSpace(c.DocumentID) == "":
		return fmt.Errorf("%w: chunk %s: document id is required", ErrInvalidInput, c.ID)
	case strings.TrimSpace(c.Content) == "":
		return fmt.Errorf("%w: chunk %s: content is empty", ErrInvalidInput, c.ID)
	case c.PageNumber < 0:
		return fmt.Errorf("%w: chunk %s: page number must be non-negative", ErrInvalidInput, c.ID)
	case c.ChunkIndex < 0:
		return fmt.Errorf("%w: chunk %s: chunk index must be non-negative", ErrInvalidInput, c.ID)
	case c.Importance != nil && (*c.Importance < 0 || *c.Importance > 1):
		return fmt.Errorf("%w: chunk %s: importance must be within [0,1]", ErrInvalidInput, c.ID)
	case c.TokenCount != nil && *c.TokenCount < 0:
		return fmt.Errorf("%w: chunk %s: token count must be non-negative", ErrInvalidInput, c.ID)
	}
	return nil
}

// Ref returns the ordering key of the chunk.
func (c *Chunk) Ref() ChunkRef {
	return ChunkRef{
		ChunkID:    c.ID,
		DocumentID: c.DocumentID,
		PageNumber: c.PageNumber,
		ChunkIndex: c.ChunkIndex,
	}
}

// BackfillResult summarises a lexical index backfill run.
type BackfillResult struct {
	// Skipped is true when the index already held entries and nothing ran.
	Skipped bool `json:"skipped"`

	// Existing is the number of entries found by the row-count probe.
	Existing int `json:"existing"`

	// Indexed is the number of entries written by this run.
	Indexed int `json:"indexed"`

	// Failed is the number of chunks that could not be indexed.
	Failed int `json:"failed"`
}

// IndexStatus compares the chunk table with its lexical index.
type IndexStatus struct {
	// Chunks is the number of live chunks.
	Chunks int `json:"chunks"`

	// Entries is the number of lexical index entries.
	Entries int `json:"entries"`
}

// InSync reports whether every chunk has exactly one index entry.
func (s IndexStatus) InSync() bool {
	return s.Chunks == s.Entries
}
