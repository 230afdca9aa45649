package fusion

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
)

type fakeSearcher struct {
	mu    sync.Mutex
	calls int

	lists map[string][]domain.Candidate
	fails map[string]error
	block chan struct{}
}

func (f *fakeSearcher) Search(ctx context.Context, collectionID string, _ []float32, _ int) ([]domain.Candidate, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.fails[collectionID]; ok {
		return nil, err
	}
	return f.lists[collectionID], nil
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func newTestEngine(searcher *fakeSearcher) *Engine {
	return NewEngine(searcher, nil, Options{Now: fixedNow})
}

func TestFuseRejectsInvalidConfigBeforeSearching(t *testing.T) {
	searcher := &fakeSearcher{}
	engine := newTestEngine(searcher)

	cfg := domain.DefaultFusionConfig()
	cfg.RRFK = 0

	_, err := engine.Fuse(context.Background(), nil, []string{"col-a"}, 10, cfg)
	if !domain.IsKind(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if searcher.callCount() != 0 {
		t.Fatalf("invalid config must be rejected before any collection is queried, got %d calls", searcher.callCount())
	}
}

func TestFuseAllCollectionsFailed(t *testing.T) {
	searcher := &fakeSearcher{
		fails: map[string]error{
			"col-a": errors.New("timeout"),
			"col-b": errors.New("unreachable"),
			"col-c": errors.New("timeout"),
		},
	}
	engine := newTestEngine(searcher)

	_, err := engine.Fuse(context.Background(), nil, []string{"col-a", "col-b", "col-c"}, 10, domain.DefaultFusionConfig())
	if !domain.IsKind(err, domain.ErrAllCollectionsFailed) {
		t.Fatalf("expected ErrAllCollectionsFailed, got %v", err)
	}
}

func TestFusePartialFailureDegradesGracefully(t *testing.T) {
	searcher := &fakeSearcher{
		lists: map[string][]domain.Candidate{
			"col-a": {candidate("chunk1", "col-a", 1, "alpha text for the context")},
		},
		fails: map[string]error{"col-b": errors.New("timeout")},
	}
	engine := newTestEngine(searcher)

	fused, err := engine.Fuse(context.Background(), nil, []string{"col-a", "col-b"}, 10, domain.DefaultFusionConfig())
	if err != nil {
		t.Fatalf("partial failure must not fail the query: %v", err)
	}
	if fused.Diagnostics.CollectionsFailed != 1 {
		t.Fatalf("expected 1 failed collection in diagnostics, got %d", fused.Diagnostics.CollectionsFailed)
	}
	if len(fused.Results) != 1 || fused.Results[0].ChunkID != "chunk1" {
		t.Fatalf("expected surviving collection's chunk, got %+v", fused.Results)
	}
}

func TestFuseZeroResultsIsValidSuccess(t *testing.T) {
	searcher := &fakeSearcher{lists: map[string][]domain.Candidate{"col-a": nil}}
	engine := newTestEngine(searcher)

	fused, err := engine.Fuse(context.Background(), nil, []string{"col-a"}, 10, domain.DefaultFusionConfig())
	if err != nil {
		t.Fatalf("zero relevant results is a valid empty success: %v", err)
	}
	if len(fused.Results) != 0 || fused.TotalTokens != 0 {
		t.Fatalf("expected empty result set, got %+v", fused)
	}
	if fused.Context != "" {
		t.Fatalf("expected empty context, got %q", fused.Context)
	}
}

func TestFuseCancellationReturnsNoPartialOutput(t *testing.T) {
	block := make(chan struct{})
	searcher := &fakeSearcher{
		lists: map[string][]domain.Candidate{
			"col-a": {candidate("chunk1", "col-a", 1, "alpha")},
		},
		block: block,
	}
	engine := NewEngine(searcher, nil, Options{Now: fixedNow, SearchTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	var fused *domain.FusedContext
	var err error
	go func() {
		fused, err = engine.Fuse(ctx, nil, []string{"col-a", "col-b"}, 10, domain.DefaultFusionConfig())
		close(done)
	}()

	cancel()
	<-done
	close(block)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fused != nil {
		t.Fatalf("cancellation must not return partial results")
	}
}

func TestFuseDeterministicAcrossRuns(t *testing.T) {
	searcher := &fakeSearcher{
		lists: map[string][]domain.Candidate{
			"col-a": {
				candidate("chunk1", "col-a", 1, "storage engine compaction details and tuning"),
				candidate("chunk2", "col-a", 2, "write ahead log recovery procedure"),
			},
			"col-b": {
				candidate("chunk2", "col-b", 1, "write ahead log recovery procedure"),
				candidate("chunk3", "col-b", 2, "storage engine compaction details and sizing"),
			},
		},
	}
	engine := newTestEngine(searcher)

	cfg := domain.DefaultFusionConfig()
	cfg.DiversityFactor = 0.5

	first, err := engine.Fuse(context.Background(), nil, []string{"col-a", "col-b"}, 10, cfg)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := engine.Fuse(context.Background(), nil, []string{"col-a", "col-b"}, 10, cfg)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical inputs must yield identical output:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestFuseScenarioEndToEnd(t *testing.T) {
	searcher := &fakeSearcher{
		lists: map[string][]domain.Candidate{
			"col-a": {
				candidate("chunk1", "col-a", 1, "first chunk body"),
				candidate("chunk2", "col-a", 2, "second chunk body"),
			},
			"col-b": {
				candidate("chunk2", "col-b", 1, "second chunk body"),
				candidate("chunk3", "col-b", 2, "third chunk body"),
			},
		},
	}
	engine := newTestEngine(searcher)

	cfg := domain.DefaultFusionConfig()
	cfg.DiversityFactor = 0

	fused, err := engine.Fuse(context.Background(), nil, []string{"col-a", "col-b"}, 10, cfg)
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	if len(fused.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(fused.Results))
	}
	// chunk2 fuses 1/62 + 1/61 and must win; orderForPrompt keeps it first
	// and moves the runner-up to the end.
	if fused.Results[0].ChunkID != "chunk2" {
		t.Fatalf("expected chunk2 first, got %s", fused.Results[0].ChunkID)
	}
	if fused.Diagnostics.CandidatesConsidered != 3 {
		t.Fatalf("expected 3 candidates considered, got %d", fused.Diagnostics.CandidatesConsidered)
	}
	if fused.Strategy != StrategyName {
		t.Fatalf("unexpected strategy %q", fused.Strategy)
	}
}
