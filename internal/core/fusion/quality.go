package fusion

import (
	"time"
	"unicode/utf8"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
)

const recencyWindow = 30 * 24 * time.Hour

// adjustQuality applies the deterministic heuristic multipliers to each
// candidate's weighted score. The multipliers compose by straight
// multiplication and are order-independent; an absent metadata field means
// the bonus does not apply, never an error.
func adjustQuality(candidates []domain.ScoredCandidate, now time.Time) {
	for i := range candidates {
		candidates[i].QualityScore = candidates[i].WeightedScore * qualityMultiplier(candidates[i].Candidate, now)
	}
}

func qualityMultiplier(c domain.Candidate, now time.Time) float64 {
	m := lengthMultiplier(utf8.RuneCountInString(c.Text))
	if c.Metadata.HasTitle {
		m *= 1.05
	}
	if c.Metadata.FileType == "PDF" {
		m *= 1.02
	}
	if !c.Metadata.CreatedAt.IsZero() && now.Sub(c.Metadata.CreatedAt) < recencyWindow {
		m *= 1.03
	}
	return m
}

// lengthMultiplier favors chunks in the 200..1000 character sweet spot and
// demotes fragments and oversized chunks. Characters are runes, not bytes,
// so non-ASCII text lands in the same band as ASCII text of the same length.
func lengthMultiplier(chars int) float64 {
	switch {
	case chars < 100:
		return 0.8
	case chars >= 200 && chars <= 1000:
		return 1.1
	case chars > 2000:
		return 0.9
	default:
		return 1.0
	}
}
