package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Search request defaults.
const (
	// DefaultSearchLimit is used when a request carries no limit.
	DefaultSearchLimit = 10

	// DefaultMaxSearchLimit caps the limit of a single request.
	DefaultMaxSearchLimit = 100

	// DefaultVectorWeight is the fusion coefficient of the vector signal.
	DefaultVectorWeight = 0.65

	// DefaultTextWeight is the fusion coefficient of the lexical signal.
	DefaultTextWeight = 0.35
)

// SearchType selects which retrieval signals contribute to a search.
type SearchType string

// Available search types.
const (
	// SearchTypeFullText ranks by lexical relevance only.
	SearchTypeFullText SearchType = "fulltext"

	// SearchTypeVector ranks by vector similarity only.
	SearchTypeVector SearchType = "vector"

	// SearchTypeHybrid fuses lexical relevance and vector similarity.
	SearchTypeHybrid SearchType = "hybrid"
)

// ParseSearchType converts a raw string to a SearchType.
// An empty string selects hybrid search.
func ParseSearchType(raw string) (SearchType, error) {
	t := SearchType(strings.ToLower(strings.TrimSpace(raw)))
	if t == "" {
		return SearchTypeHybrid, nil
	}
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid search type %q, valid options: fulltext, vector, hybrid",
			ErrInvalidInput, raw)
	}
	return t, nil
}

// IsValid returns true if the search type is recognised.
func (t SearchType) IsValid() bool {
	switch t {
	case SearchTypeFullText, SearchTypeVector, SearchTypeHybrid:
		return true
	default:
		return false
	}
}

// UsesLexical reports whether the lexical index is queried.
func (t SearchType) UsesLexical() bool {
	return t == SearchTypeFullText || t == SearchTypeHybrid
}

// UsesVector reports whether the vector score provider is queried.
func (t SearchType) UsesVector() bool {
	return t == SearchTypeVector || t == SearchTypeHybrid
}

// String returns the string representation.
func (t SearchType) String() string {
	return string(t)
}

// Weights are the multiplicative fusion coefficients of each signal.
// They are independent and need not sum to 1.
type Weights struct {
	Vector float64 `json:"vector"`
	Text   float64 `json:"text"`
}

// DefaultWeights returns the default fusion coefficients.
func DefaultWeights() Weights {
	return Weights{Vector: DefaultVectorWeight, Text: DefaultTextWeight}
}

// Clamped returns the weights with each coefficient clamped to [0,1].
func (w Weights) Clamped() Weights {
	return Weights{Vector: Clamp01(w.Vector), Text: Clamp01(w.Text)}
}

// Clamp01 clamps v to [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// SearchRequest is the input contract of a search.
type SearchRequest struct {
	// Query is the free-text query. Required.
	Query string

	// DocumentID restricts the search to one document when set.
	DocumentID string

	// Limit is the maximum number of results (0 selects the default).
	Limit int

	// Offset is the number of fused results to skip.
	Offset int

	// Type selects the retrieval signals.
	Type SearchType

	// VectorWeight is the vector fusion coefficient; nil selects the default.
	VectorWeight *float64

	// TextWeight is the lexical fusion coefficient; nil selects the default.
	TextWeight *float64

	// Filters holds optional restrictions. Unknown keys are ignored.
	Filters map[string]any
}

// SearchPlan is a validated SearchRequest with defaults applied.
type SearchPlan struct {
	Query   string
	Type    SearchType
	Limit   int
	Offset  int
	Weights Weights
	Filter  SearchFilter
}

// SearchFilter is the parsed, typed form of SearchRequest.Filters plus
// the document restriction. It is applied before fusion.
type SearchFilter struct {
	DocumentID        string
	Author            string
	DocumentType      string
	Language          string
	Topics            []string
	CreationDateStart *time.Time
	CreationDateEnd   *time.Time
	MinPage           *int
	MaxPage           *int
}

// HasDocumentConstraints reports whether the filter needs document metadata.
func (f SearchFilter) HasDocumentConstraints() bool {
	return f.Author != "" || f.DocumentType != "" || f.Language != "" ||
		len(f.Topics) > 0 || f.CreationDateStart != nil || f.CreationDateEnd != nil
}

// Matches reports whether a chunk of the given document passes the filter.
// Author matches case-insensitively on a substring. Topics match when any
// requested topic is present. A nil document fails every document
// constraint.
func (f SearchFilter) Matches(doc *Document, ref ChunkRef) bool {
	if f.DocumentID != "" && ref.DocumentID != f.DocumentID {
		return false
	}
	if f.MinPage != nil && ref.PageNumber < *f.MinPage {
		return false
	}
	if f.MaxPage != nil && ref.PageNumber > *f.MaxPage {
		return false
	}
	if !f.HasDocumentConstraints() {
		return true
	}
	if doc == nil {
		return false
	}
	if f.Author != "" && !strings.Contains(strings.ToLower(doc.Author), strings.ToLower(f.Author)) {
		return false
	}
	if f.DocumentType != "" && doc.DocumentType != f.DocumentType {
		return false
	}
	if f.Language != "" && doc.Language != f.Language {
		return false
	}
	if f.CreationDateStart != nil && (doc.CreationDate == nil || doc.CreationDate.Before(*f.CreationDateStart)) {
		return false
	}
	if f.CreationDateEnd != nil && (doc.CreationDate == nil || doc.CreationDate.After(*f.CreationDateEnd)) {
		return false
	}
	if len(f.Topics) > 0 && !overlaps(f.Topics, doc.Topics) {
		return false
	}
	return true
}

func overlaps(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// ParseFilters converts an opaque filter map into a SearchFilter.
// Unknown keys and values of the wrong type are ignored.
func ParseFilters(documentID string, raw map[string]any) SearchFilter {
	f := SearchFilter{DocumentID: strings.TrimSpace(documentID)}
	for key, value := range raw {
		switch key {
		case "author":
			f.Author = stringValue(value)
		case "document_type":
			f.DocumentType = stringValue(value)
		case "language":
			f.Language = stringValue(value)
		case "topics":
			f.Topics = stringsValue(value)
		case "creation_date_start":
			f.CreationDateStart = timeValue(value)
		case "creation_date_end":
			f.CreationDateEnd = timeValue(value)
		case "min_page":
			f.MinPage = intValue(value)
		case "max_page":
			f.MaxPage = intValue(value)
		}
	}
	return f
}

func stringValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func stringsValue(v any) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func intValue(v any) *int {
	var n int
	switch t := v.(type) {
	case int:
		n = t
	case int64:
		n = int(t)
	case float64:
		if t != math.Trunc(t) {
			return nil
		}
		n = int(t)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

func timeValue(v any) *time.Time {
	switch t := v.(type) {
	case time.Time:
		return &t
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return &parsed
			}
		}
	}
	return nil
}

// ChunkRef identifies a chunk together with its ordering key.
type ChunkRef struct {
	ChunkID    string
	DocumentID string
	PageNumber int
	ChunkIndex int
}

// Less orders refs by page, then chunk index, then id.
func (r ChunkRef) Less(other ChunkRef) bool {
	if r.PageNumber != other.PageNumber {
		return r.PageNumber < other.PageNumber
	}
	if r.ChunkIndex != other.ChunkIndex {
		return r.ChunkIndex < other.ChunkIndex
	}
	return r.ChunkID < other.ChunkID
}

// Candidate is a chunk scored by a single retrieval signal.
type Candidate struct {
	Ref   ChunkRef
	Score float64

	// Importance is the chunk's weight when the signal reports it.
	Importance *float64
}

// FusedCandidate is a chunk with its fused score and both sub-scores.
type FusedCandidate struct {
	Ref          ChunkRef
	Score        float64
	LexicalScore float64
	VectorScore  float64
}

// DocumentInfo is the document summary attached to each result.
type DocumentInfo struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	DocumentType string `json:"document_type"`
}

// SearchResult represents a single search hit.
type SearchResult struct {
	ChunkID      string       `json:"chunk_id"`
	DocumentID   string       `json:"document_id"`
	PageNumber   int          `json:"page_number"`
	ChunkIndex   int          `json:"chunk_index"`
	Content      string       `json:"content"`
	ContentType  string       `json:"content_type"`
	SectionPath  []string     `json:"section_path,omitempty"`
	Score        float64      `json:"score"`
	LexicalScore float64      `json:"lexical_score"`
	VectorScore  float64      `json:"vector_score"`
	Document     DocumentInfo `json:"document_info"`
}

// SearchResponse is the output contract of a search.
type SearchResponse struct {
	// Query echoes the request query.
	Query string `json:"query"`

	// Results is the ordered, paginated result page.
	Results []SearchResult `json:"results"`

	// Count is the number of fused candidates before pagination.
	Count int `json:"count"`

	// Type is the requested search type.
	Type SearchType `json:"search_type"`

	// Degraded is set when a signal was unavailable and results fell back
	// to the remaining one.
	Degraded bool `json:"degraded"`

	// DegradedReason describes why the response is degraded.
	DegradedReason string `json:"degraded_reason,omitempty"`

	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
	Weights Weights `json:"weights"`

	// ExecutionTime is encoded as fractional seconds.
	ExecutionTime time.Duration `json:"execution_time"`
}

// MarshalJSON encodes the response with execution_time in seconds.
func (r SearchResponse) MarshalJSON() ([]byte, error) {
	type plain SearchResponse
	return json.Marshal(struct {
		plain
		ExecutionTime float64 `json:"execution_time"`
	}{plain(r), r.ExecutionTime.Seconds()})
}

// UnmarshalJSON reads execution_time as seconds.
func (r *SearchResponse) UnmarshalJSON(data []byte) error {
	type plain SearchResponse
	var aux struct {
		plain
		ExecutionTime float64 `json:"execution_time"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = SearchResponse(aux.plain)
	r.ExecutionTime = time.Duration(aux.ExecutionTime * float64(time.Second))
	return nil
}
