package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func importance(v float64) *float64 {
	return &v
}

func validChunk() Chunk {
	return Chunk{
		ID:          "c1",
		DocumentID:  "d1",
		PageNumber:  1,
		ChunkIndex:  0,
		Content:     "carbon emissions policy",
		ContentType: DefaultContentType,
		Importance:  importance(DefaultImportance),
	}
}

func TestChunk_Validate_Valid(t *testing.T) {
	c := validChunk()
	assert.NoError(t, c.Validate())
}

func TestChunk_Validate_Invalid(t *testing.T) {
	negative := -1
	tests := []struct {
		name   string
		mutate func(c *Chunk)
	}{
		{"missing id", func(c *Chunk) { c.ID = "" }},
		{"missing document", func(c *Chunk) { c.DocumentID = "  " }},
		{"blank content", func(c *Chunk) { c.Content = " \n\t" }},
		{"negative page", func(c *Chunk) { c.PageNumber = -1 }},
		{"negative chunk index", func(c *Chunk) { c.ChunkIndex = -2 }},
		{"importance above one", func(c *Chunk) { c.Importance = importance(1.5) }},
		{"negative importance", func(c *Chunk) { c.Importance = importance(-0.1) }},
		{"negative token count", func(c *Chunk) { c.TokenCount = &negative }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validChunk()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidInput)
		})
	}
}

func TestChunk_ApplyDefaults(t *testing.T) {
	c := Chunk{ID: "c1", DocumentID: "d1", Content: "x"}
	c.ApplyDefaults()

	assert.Equal(t, "text", c.ContentType)
	require.NotNil(t, c.Importance)
	assert.Equal(t, 0.5, *c.Importance)

	c = Chunk{ContentType: "table", Importance: importance(0.9)}
	c.ApplyDefaults()

	assert.Equal(t, "table", c.ContentType)
	assert.Equal(t, 0.9, *c.Importance)
}

func TestChunk_ApplyDefaults_KeepsExplicitZeroImportance(t *testing.T) {
	c := Chunk{ID: "c1", DocumentID: "d1", Content: "x", Importance: importance(0)}
	c.ApplyDefaults()

	require.NotNil(t, c.Importance)
	assert.Zero(t, *c.Importance)
	assert.Zero(t, c.Weight())
	assert.NoError(t, c.Validate())
}

func TestChunk_Weight(t *testing.T) {
	assert.Equal(t, DefaultImportance, (&Chunk{}).Weight())
	assert.Equal(t, 0.25, (&Chunk{Importance: importance(0.25)}).Weight())
}

func TestChunk_ImportanceJSON(t *testing.T) {
	var c Chunk
	require.NoError(t, json.Unmarshal([]byte(`{"id":"c1","importance":0}`), &c))
	require.NotNil(t, c.Importance)
	assert.Zero(t, *c.Importance)

	c = Chunk{}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"c1"}`), &c))
	assert.Nil(t, c.Importance)
}

func TestChunk_Ref(t *testing.T) {
	c := validChunk()
	ref := c.Ref()

	assert.Equal(t, ChunkRef{ChunkID: "c1", DocumentID: "d1", PageNumber: 1, ChunkIndex: 0}, ref)
}

func TestDocument_Validate(t *testing.T) {
	assert.NoError(t, (&Document{ID: "d1"}).Validate())
	assert.ErrorIs(t, (&Document{}).Validate(), ErrInvalidInput)
	assert.ErrorIs(t, (&Document{ID: "d1", PageCount: -3}).Validate(), ErrInvalidInput)
}

func TestIndexStatus_InSync(t *testing.T) {
	assert.True(t, IndexStatus{Chunks: 3, Entries: 3}.InSync())
	assert.False(t, IndexStatus{Chunks: 3, Entries: 2}.InSync())
}

func TestDocument_Info(t *testing.T) {
	var missing *Document
	assert.Equal(t, DocumentInfo{Title: "Unknown", Author: "Unknown", DocumentType: "Unknown"}, missing.Info())

	doc := &Document{ID: "d1", Filename: "report.pdf", Author: "IPCC"}
	assert.Equal(t, DocumentInfo{Title: "report.pdf", Author: "IPCC", DocumentType: "Unknown"}, doc.Info())

	doc.Title = "Climate Report"
	doc.DocumentType = "report"
	assert.Equal(t, DocumentInfo{Title: "Climate Report", Author: "IPCC", DocumentType: "report"}, doc.Info())
}
