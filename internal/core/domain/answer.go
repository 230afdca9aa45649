package domain

// FusionDiagnostics summarizes what happened during one fusion run.
// Per-collection failures are recoverable and show up only here.
type FusionDiagnostics struct {
	RRFK                 float64 `json:"rrf_k"`
	CollectionsSearched  int     `json:"collections_searched"`
	CollectionsFailed    int     `json:"collections_failed"`
	CandidatesConsidered int     `json:"candidates_considered"`
}

// FusedContext is the assembled, budget-constrained context block handed to
// prompt assembly: the selected results in presentation order plus the
// rendered context string.
type FusedContext struct {
	Results     []MergedResult    `json:"results"`
	Context     string            `json:"context"`
	TotalTokens int               `json:"total_tokens"`
	Strategy    string            `json:"strategy"`
	Diagnostics FusionDiagnostics `json:"diagnostics"`
}

// SourceAttribution is a compact, user-facing reference to one selected chunk.
type SourceAttribution struct {
	DocumentID     string  `json:"document_id"`
	ChunkID        string  `json:"chunk_id"`
	CollectionID   string  `json:"collection_id"`
	Filename       string  `json:"filename"`
	Preview        string  `json:"preview"`
	RelevanceScore float64 `json:"relevance_score"`
	Sequence       int     `json:"sequence"`
}

// Answer is the final RAG response.
type Answer struct {
	Text             string              `json:"text"`
	Sources          []SourceAttribution `json:"sources"`
	ContextUsed      string              `json:"context_used,omitempty"`
	Diagnostics      FusionDiagnostics   `json:"diagnostics"`
	ProcessingTimeMS int64               `json:"processing_time_ms"`
}
