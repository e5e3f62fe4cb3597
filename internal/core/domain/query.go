package domain

import (
	"strings"
	"unicode"
)

// minTermLength is the shortest term kept when longer terms exist.
const minTermLength = 3

// QueryTerms splits a free-text query into lowercase search terms.
// Punctuation separates terms. Terms shorter than three characters are
// dropped unless nothing else would remain. Duplicates are removed and
// first-occurrence order is kept.
func QueryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	all := make([]string, 0, len(fields))
	long := make([]string, 0, len(fields))
	for _, f := range fields {
		if seen[f] {
			continue
		}
		seen[f] = true
		all = append(all, f)
		if len([]rune(f)) >= minTermLength {
			long = append(long, f)
		}
	}

	if len(long) > 0 {
		return long
	}
	return all
}
