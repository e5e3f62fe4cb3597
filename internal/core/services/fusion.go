package services

import (
	"sort"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Fuse merges lexical and vector candidates into one ranked list.
//
// Each chunk scores w.Vector*vector + w.Text*lexical, where a sub-score
// missing from its list counts as 0. Sub-scores and weights are clamped
// to [0,1] and NaN becomes 0. When a chunk appears more than once in the
// same list, its highest score is kept. The result is ordered by score
// descending, then page, chunk index and chunk id ascending, so equal
// inputs always produce the same order.
func Fuse(lexical, vector []domain.Candidate, w domain.Weights) []domain.FusedCandidate {
	w = w.Clamped()

	merged := make(map[string]*domain.FusedCandidate, len(lexical)+len(vector))
	entry := func(ref domain.ChunkRef) *domain.FusedCandidate {
		fc, ok := merged[ref.ChunkID]
		if !ok {
			fc = &domain.FusedCandidate{Ref: ref}
			merged[ref.ChunkID] = fc
		}
		return fc
	}

	for _, c := range lexical {
		fc := entry(c.Ref)
		if s := domain.Clamp01(c.Score); s > fc.LexicalScore {
			fc.LexicalScore = s
		}
	}
	for _, c := range vector {
		fc := entry(c.Ref)
		if s := domain.Clamp01(c.Score); s > fc.VectorScore {
			fc.VectorScore = s
		}
	}

	fused := make([]domain.FusedCandidate, 0, len(merged))
	for _, fc := range merged {
		fc.Score = w.Vector*fc.VectorScore + w.Text*fc.LexicalScore
		fused = append(fused, *fc)
	}

	sortFused(fused)
	return fused
}

// sortFused orders by score descending, then by chunk position.
func sortFused(fused []domain.FusedCandidate) {
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].Ref.Less(fused[j].Ref)
	})
}

// rankLexical ranks lexical candidates alone; the score is the lexical sub-score.
func rankLexical(lexical []domain.Candidate) []domain.FusedCandidate {
	return Fuse(lexical, nil, domain.Weights{Text: 1})
}

// rankVector ranks vector candidates alone. The score is the vector
// sub-score times the chunk's importance; VectorScore keeps the raw
// similarity. Candidates without an importance are not weighted.
func rankVector(vector []domain.Candidate) []domain.FusedCandidate {
	fused := Fuse(nil, vector, domain.Weights{Vector: 1})

	importance := make(map[string]float64, len(vector))
	for _, c := range vector {
		if c.Importance != nil {
			importance[c.Ref.ChunkID] = domain.Clamp01(*c.Importance)
		}
	}
	if len(importance) == 0 {
		return fused
	}

	for i := range fused {
		if weight, ok := importance[fused[i].Ref.ChunkID]; ok {
			fused[i].Score = fused[i].VectorScore * weight
		}
	}
	sortFused(fused)
	return fused
}

// Paginate returns the page of fused that starts at offset and holds at
// most limit items. It never returns nil.
func Paginate(fused []domain.FusedCandidate, offset, limit int) []domain.FusedCandidate {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(fused) || limit <= 0 {
		return []domain.FusedCandidate{}
	}

	end := offset + limit
	if end > len(fused) {
		end = len(fused)
	}

	return fused[offset:end]
}
