package fusion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
	"github.com/advanced-rag/fusion-engine/internal/core/ports"
)

// StrategyName identifies the fusion algorithm in responses and cache entries.
const StrategyName = "enhanced_rrf"

const (
	defaultSearchTimeout  = 500 * time.Millisecond
	defaultMaxConcurrency = 16
)

// Options tune the engine's fan-out behavior. Zero values fall back to
// defaults; per-query scoring knobs live in domain.FusionConfig instead.
type Options struct {
	// MaxConcurrency caps concurrent per-collection searches. The effective
	// bound per query is min(MaxConcurrency, number of collections).
	MaxConcurrency int
	// SearchTimeout bounds each individual collection search.
	SearchTimeout time.Duration
	// Now overrides the clock used by the recency heuristic (tests).
	Now func() time.Time
}

// Engine runs the fusion pipeline: concurrent fan-out to per-collection
// searches, then a single-threaded pure transformation chain
// (RRF → weights → quality → diversity → budget → ordering).
// The engine holds no per-query state; every call is fully isolated.
type Engine struct {
	searcher       ports.CollectionSearcher
	logger         *slog.Logger
	maxConcurrency int
	searchTimeout  time.Duration
	now            func() time.Time
}

func NewEngine(searcher ports.CollectionSearcher, logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	searchTimeout := opts.SearchTimeout
	if searchTimeout <= 0 {
		searchTimeout = defaultSearchTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		searcher:       searcher,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		searchTimeout:  searchTimeout,
		now:            now,
	}
}

// Fuse searches every collection with the query vector, fuses the ranked
// lists and returns the budget-constrained context in presentation order.
//
// A collection that errors or times out contributes an empty list and is
// reported only through Diagnostics.CollectionsFailed; the call fails with
// domain.ErrAllCollectionsFailed only when no collection responded, and
// with the context's error when cancelled before fan-in completed.
func (e *Engine) Fuse(ctx context.Context, queryVector []float32, collectionIDs []string, topK int, cfg domain.FusionConfig) (*domain.FusedContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(collectionIDs) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "fuse", fmt.Errorf("no collections requested"))
	}

	lists, failed, err := e.fanOut(ctx, queryVector, collectionIDs, topK)
	if err != nil {
		return nil, err
	}
	if failed == len(collectionIDs) {
		return nil, domain.WrapError(domain.ErrAllCollectionsFailed, "fuse",
			fmt.Errorf("all %d collection searches failed", failed))
	}

	candidates := fuseRRF(lists, cfg.RRFK)
	applyCollectionWeights(candidates, cfg)
	adjustQuality(candidates, e.now())
	sortByQuality(candidates)
	penalizeDuplicates(candidates, cfg.DiversityFactor)
	sortByDiversityAdjusted(candidates)
	selected, totalTokens := selectWithinBudget(candidates, cfg.MaxContextTokens)
	ordered := orderForPrompt(selected)

	fused := &domain.FusedContext{
		Results:     ordered,
		Context:     RenderContext(ordered),
		TotalTokens: totalTokens,
		Strategy:    StrategyName,
		Diagnostics: domain.FusionDiagnostics{
			RRFK:                 cfg.RRFK,
			CollectionsSearched:  len(collectionIDs),
			CollectionsFailed:    failed,
			CandidatesConsidered: len(candidates),
		},
	}

	e.logger.Info("fusion_completed",
		"collections_searched", len(collectionIDs),
		"collections_failed", failed,
		"candidates_considered", len(candidates),
		"chunks_selected", len(ordered),
		"total_tokens", totalTokens,
		"budget", cfg.MaxContextTokens,
	)
	return fused, nil
}

// fanOut dispatches per-collection searches concurrently behind a counting
// semaphore. Individual failures are absorbed into the failed count; only
// cancellation of the parent context aborts the whole fan-out.
func (e *Engine) fanOut(ctx context.Context, queryVector []float32, collectionIDs []string, topK int) (map[string][]domain.Candidate, int, error) {
	sem := semaphore.NewWeighted(int64(e.maxConcurrency))
	lists := make(map[string][]domain.Candidate, len(collectionIDs))
	failed := 0

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, id := range collectionIDs {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, 0, err
		}
		wg.Add(1)
		go func(collectionID string) {
			defer wg.Done()
			defer sem.Release(1)

			searchCtx, cancel := context.WithTimeout(ctx, e.searchTimeout)
			defer cancel()
			candidates, err := e.searcher.Search(searchCtx, collectionID, queryVector, topK)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				e.logger.Warn("collection_search_failed",
					"collection_id", collectionID,
					"error", err,
				)
				return
			}
			lists[collectionID] = candidates
		}(id)
	}
	wg.Wait()

	// Cancelled before fan-in completed: no partial output.
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	return lists, failed, nil
}
