package fusion

import (
	"sort"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
)

// orderForPrompt rearranges budget-selected results (descending score) into
// presentation order: the best result goes first, the runner-up goes last,
// and the rest stay in score order in between. Placing the strongest chunks
// at the edges counters lost-in-the-middle degradation in the downstream
// model. Two or fewer results are returned unchanged.
func orderForPrompt(results []domain.MergedResult) []domain.MergedResult {
	if len(results) <= 2 {
		return results
	}
	out := make([]domain.MergedResult, 0, len(results))
	out = append(out, results[0])
	out = append(out, results[2:]...)
	out = append(out, results[1])
	return out
}

// sortByQuality orders candidates for the diversity walk: quality score
// descending, ties broken by lexical chunk id so identical inputs always
// produce identical output.
func sortByQuality(candidates []domain.ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].QualityScore != candidates[j].QualityScore {
			return candidates[i].QualityScore > candidates[j].QualityScore
		}
		return candidates[i].ChunkID < candidates[j].ChunkID
	})
}

// sortByDiversityAdjusted orders candidates for budget selection, same
// tie-break rule.
func sortByDiversityAdjusted(candidates []domain.ScoredCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DiversityAdjusted != candidates[j].DiversityAdjusted {
			return candidates[i].DiversityAdjusted > candidates[j].DiversityAdjusted
		}
		return candidates[i].ChunkID < candidates[j].ChunkID
	})
}
