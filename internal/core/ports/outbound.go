package ports

import (
	"context"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
)

// CollectionSearcher runs one collection's vector search and returns a
// rank-ordered candidate list (rank 1 first). Implementations own the
// index details; the fusion core only sees the ranked list.
type CollectionSearcher interface {
	Search(ctx context.Context, collectionID string, queryVector []float32, topK int) ([]domain.Candidate, error)
}

// Embedder builds the query vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// AnswerGenerator creates the final user-facing answer from the fused context.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question, contextBlock string) (string, error)
}

// CollectionRegistry resolves registered Knowledge Collections.
type CollectionRegistry interface {
	GetByIDs(ctx context.Context, ids []string) ([]domain.Collection, error)
}

// ResultCache stores assembled fusion results outside the pure pipeline,
// keyed by (query, collection set, config) hash.
type ResultCache interface {
	Get(key string) (*domain.FusedContext, bool)
	Set(key string, collectionIDs []string, value *domain.FusedContext)
	InvalidateCollection(collectionID string)
}

// EventBus delivers collection-change notifications published by the
// ingestion side; this service only consumes them to invalidate its cache.
type EventBus interface {
	SubscribeCollectionChanged(ctx context.Context, handler func(context.Context, string) error) error
}
