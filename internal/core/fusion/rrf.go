package fusion

import (
	"sort"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
)

// fuseRRF merges per-collection ranked result lists into one deduplicated
// candidate set using Reciprocal Rank Fusion: each appearance at 1-based
// rank r contributes 1/(k + r), and a chunk retrieved by several collections
// accumulates its contributions additively.
//
// The merged candidate adopts the identity (collection, rank, raw score,
// text, metadata) of the collection whose RRF term is largest; on an exact
// tie the lexically smaller collection id wins. Collection ids are walked in
// sorted order so the merge is deterministic regardless of map iteration.
func fuseRRF(lists map[string][]domain.Candidate, rrfK float64) []domain.ScoredCandidate {
	collectionIDs := make([]string, 0, len(lists))
	for id := range lists {
		collectionIDs = append(collectionIDs, id)
	}
	sort.Strings(collectionIDs)

	acc := make(map[string]*domain.ScoredCandidate)
	for _, collectionID := range collectionIDs {
		for i, cand := range lists[collectionID] {
			rank := cand.Rank
			if rank <= 0 {
				rank = i + 1
			}
			term := 1.0 / (rrfK + float64(rank))

			sc, ok := acc[cand.ChunkID]
			if !ok {
				sc = &domain.ScoredCandidate{}
				acc[cand.ChunkID] = sc
			}
			sc.FusedScore += term
			sc.Appearances++
			if term > sc.TopContribution {
				sc.TopContribution = term
				sc.Candidate = cand
				sc.CollectionID = collectionID
				sc.Rank = rank
			}
		}
	}

	out := make([]domain.ScoredCandidate, 0, len(acc))
	for _, sc := range acc {
		out = append(out, *sc)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ChunkID < out[j].ChunkID
	})
	return out
}

// applyCollectionWeights multiplies each fused score by the configured
// weight of the candidate's authoritative collection (the one with the
// largest RRF term), 1.0 when unconfigured.
func applyCollectionWeights(candidates []domain.ScoredCandidate, cfg domain.FusionConfig) {
	for i := range candidates {
		candidates[i].WeightedScore = candidates[i].FusedScore * cfg.Weight(candidates[i].CollectionID)
	}
}
