package db

import (
	"math"
	"slices"

	"github.com/markdave123-py/knowledge-assistant/internal/models"
)

// cosineSimilarity returns 0 for mismatched lengths or zero vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// finiteScore maps NaN (cosine distance against a zero vector) to 0.
func finiteScore(s float64) float64 {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return s
}

// topK sorts hits by descending relevance and keeps the first limit.
func topK(hits []models.ScoredChunk, limit int) []models.ScoredChunk {
	slices.SortStableFunc(hits, func(a, b models.ScoredChunk) int {
		switch {
		case a.RelevanceScore > b.RelevanceScore:
			return -1
		case a.RelevanceScore < b.RelevanceScore:
			return 1
		}
		return 0
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}
