package fusion

import (
	"strings"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
)

// penalizeDuplicates walks candidates in the given order (callers pass them
// sorted by quality score, best first) and reduces each candidate's score by
// its maximum word-set Jaccard similarity against every candidate walked
// before it:
//
//	diversity_adjusted = quality * (1 - factor*maxSimilarity)
//
// Every candidate joins the comparison set whether or not it will survive
// budget selection later; this stage only re-scores, it never drops.
//
// factor == 0 skips the O(n²) similarity computation entirely.
func penalizeDuplicates(candidates []domain.ScoredCandidate, factor float64) {
	if factor == 0 {
		for i := range candidates {
			candidates[i].DiversityAdjusted = candidates[i].QualityScore
		}
		return
	}

	seen := make([]map[string]struct{}, 0, len(candidates))
	for i := range candidates {
		words := wordSet(candidates[i].Text)
		maxSimilarity := 0.0
		for _, prev := range seen {
			if s := jaccard(words, prev); s > maxSimilarity {
				maxSimilarity = s
			}
		}
		candidates[i].MaxPairwiseSimilarity = maxSimilarity
		candidates[i].DiversityAdjusted = candidates[i].QualityScore * (1 - factor*maxSimilarity)
		seen = append(seen, words)
	}
}

func wordSet(text string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(text))
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

// jaccard is |A∩B| / |A∪B| over word sets; empty sets compare as 0, not NaN.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for w := range small {
		if _, ok := large[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
