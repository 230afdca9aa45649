package fusion

import (
	"fmt"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
)

// EstimateTokens approximates the token cost of a text as ceil(chars/4).
// A fixed heuristic keeps the engine independent of any model tokenizer;
// the budget it enforces is therefore an estimate, but a hard one.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// selectWithinBudget greedily accepts candidates in the given order (callers
// pass them sorted by diversity-adjusted score, best first) until the token
// budget is exhausted. A candidate that does not fit is skipped, not a stop
// signal: a later, smaller candidate may still fit. A candidate whose cost
// alone exceeds the budget is never accepted, so an empty selection is a
// valid terminal state when nothing fits.
func selectWithinBudget(candidates []domain.ScoredCandidate, maxTokens int) ([]domain.MergedResult, int) {
	results := make([]domain.MergedResult, 0, len(candidates))
	total := 0

	for i := range candidates {
		c := &candidates[i]
		cost := EstimateTokens(c.Text)
		if total+cost > maxTokens {
			continue
		}
		total += cost
		results = append(results, domain.MergedResult{
			ChunkID:         c.ChunkID,
			DocumentID:      c.DocumentID,
			CollectionID:    c.CollectionID,
			Text:            c.Text,
			Metadata:        c.Metadata,
			FinalScore:      c.DiversityAdjusted,
			EstimatedTokens: cost,
			SelectionReason: selectionReason(c, cost, total, maxTokens),
		})
	}
	return results, total
}

func selectionReason(c *domain.ScoredCandidate, cost, used, budget int) string {
	reason := fmt.Sprintf(
		"rrf %.5f from %d collection(s), weighted %.5f, quality %.5f, final %.5f; %d est tokens (%d/%d budget)",
		c.FusedScore, c.Appearances, c.WeightedScore, c.QualityScore, c.DiversityAdjusted,
		cost, used, budget,
	)
	if c.MaxPairwiseSimilarity > 0 {
		reason += fmt.Sprintf(", overlap %.0f%%", c.MaxPairwiseSimilarity*100)
	}
	return reason
}
