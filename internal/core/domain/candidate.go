package domain

import "time"

// Candidate is a single chunk returned by one collection's vector search,
// before fusion. RawScore comes from that collection's embedding space and
// is not comparable across collections; Rank is.
type Candidate struct {
	ChunkID      string        `json:"chunk_id"`
	DocumentID   string        `json:"document_id"`
	CollectionID string        `json:"collection_id"`
	Rank         int           `json:"rank"` // 1-based position in the collection result list
	RawScore     float64       `json:"raw_score"`
	Text         string        `json:"text"`
	Metadata     ChunkMetadata `json:"metadata"`
}

// ChunkMetadata is the closed set of optional chunk attributes the quality
// heuristics recognize. A zero value means the attribute is unknown and the
// corresponding bonus simply does not apply.
type ChunkMetadata struct {
	Filename  string    `json:"filename,omitempty"`
	HasTitle  bool      `json:"has_title,omitempty"`
	FileType  string    `json:"file_type,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// ScoredCandidate carries a candidate through the fusion stages. Each stage
// fills exactly one score field and leaves the earlier ones intact, so the
// final result can explain how its score was produced.
//
// A chunk retrieved by several collections is merged into one ScoredCandidate:
// FusedScore is the sum of the per-collection RRF terms and CollectionID is
// the collection that contributed the largest single term.
type ScoredCandidate struct {
	Candidate

	FusedScore            float64 `json:"fused_score"`
	WeightedScore         float64 `json:"weighted_score"`
	QualityScore          float64 `json:"quality_score"`
	DiversityAdjusted     float64 `json:"diversity_adjusted_score"`
	TopContribution       float64 `json:"-"` // largest single RRF term, drives the weight tie-break
	Appearances           int     `json:"appearances"`
	MaxPairwiseSimilarity float64 `json:"-"`
}

// MergedResult is the final output unit of the fusion pipeline. It is created
// once per query, never persisted, and consumed by prompt assembly.
type MergedResult struct {
	ChunkID         string        `json:"chunk_id"`
	DocumentID      string        `json:"document_id"`
	CollectionID    string        `json:"collection_id"`
	Text            string        `json:"text"`
	Metadata        ChunkMetadata `json:"metadata"`
	FinalScore      float64       `json:"final_score"`
	EstimatedTokens int           `json:"estimated_tokens"`
	SelectionReason string        `json:"selection_reason"`
}
