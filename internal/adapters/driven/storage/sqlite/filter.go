package sqlite

import (
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// filterSQL is a search filter rendered as SQL conditions.
// Document columns are referenced through the alias d.
type filterSQL struct {
	join  string
	where []string
	args  []any
}

// buildFilterSQL renders a filter against the given chunk columns.
// The documents table is joined only when the filter needs it.
func buildFilterSQL(f domain.SearchFilter, documentCol, pageCol string) filterSQL {
	var out filterSQL

	if f.DocumentID != "" {
		out.where = append(out.where, documentCol+" = ?")
		out.args = append(out.args, f.DocumentID)
	}
	if f.MinPage != nil {
		out.where = append(out.where, pageCol+" >= ?")
		out.args = append(out.args, *f.MinPage)
	}
	if f.MaxPage != nil {
		out.where = append(out.where, pageCol+" <= ?")
		out.args = append(out.args, *f.MaxPage)
	}

	if !f.HasDocumentConstraints() {
		return out
	}
	out.join = "JOIN documents d ON d.id = " + documentCol

	if f.Author != "" {
		out.where = append(out.where, `LOWER(d.author) LIKE ? ESCAPE '\'`)
		out.args = append(out.args, "%"+escapeLike(strings.ToLower(f.Author))+"%")
	}
	if f.DocumentType != "" {
		out.where = append(out.where, "d.document_type = ?")
		out.args = append(out.args, f.DocumentType)
	}
	if f.Language != "" {
		out.where = append(out.where, "d.language = ?")
		out.args = append(out.args, f.Language)
	}
	if f.CreationDateStart != nil {
		out.where = append(out.where, "d.creation_date IS NOT NULL AND d.creation_date >= ?")
		out.args = append(out.args, formatDate(*f.CreationDateStart))
	}
	if f.CreationDateEnd != nil {
		out.where = append(out.where, "d.creation_date IS NOT NULL AND d.creation_date <= ?")
		out.args = append(out.args, formatDate(*f.CreationDateEnd))
	}
	if len(f.Topics) > 0 {
		out.where = append(out.where,
			"EXISTS (SELECT 1 FROM json_each(d.topics) WHERE json_each.value IN ("+placeholders(len(f.Topics))+"))")
		for _, topic := range f.Topics {
			out.args = append(out.args, topic)
		}
	}

	return out
}

// conditions returns the filter conditions prefixed with AND.
func (f filterSQL) conditions() string {
	if len(f.where) == 0 {
		return ""
	}
	return " AND " + strings.Join(f.where, " AND ")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
