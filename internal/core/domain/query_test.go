package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryTerms(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"single word", "carbon", []string{"carbon"}},
		{"lowercases", "Carbon Emissions", []string{"carbon", "emissions"}},
		{"strips punctuation", "carbon-emissions, 2023!", []string{"carbon", "emissions", "2023"}},
		{"drops short terms", "the co2 of it", []string{"the", "co2"}},
		{"keeps short terms when nothing else", "is it", []string{"is", "it"}},
		{"deduplicates", "carbon CARBON carbon", []string{"carbon"}},
		{"fts operators are plain text", `carbon AND "NOT" NEAR(x)`, []string{"carbon", "and", "not", "near"}},
		{"unicode letters", "Émissions café", []string{"émissions", "café"}},
		{"only punctuation", "?!-", []string{}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QueryTerms(tt.query))
		})
	}
}
