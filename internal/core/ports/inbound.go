package ports

import (
	"context"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
)

// FusionService is the inbound contract for fusion-only retrieval: it
// returns the deduplicated, budget-constrained context block without
// calling the language model.
type FusionService interface {
	FuseAndSelect(ctx context.Context, query string, collectionIDs []string, cfg domain.FusionConfig) (*domain.FusedContext, error)
}

// RAGQueryService is the inbound contract for the full retrieve-then-answer
// flow consumed by chat orchestration.
type RAGQueryService interface {
	Answer(ctx context.Context, question string, collectionIDs []string, cfg domain.FusionConfig) (*domain.Answer, error)
}
