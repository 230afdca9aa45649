package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
)

type fakeFusionService struct {
	fused *domain.FusedContext
	err   error
}

func (f *fakeFusionService) FuseAndSelect(_ context.Context, _ string, _ []string, _ domain.FusionConfig) (*domain.FusedContext, error) {
	return f.fused, f.err
}

type fakeGenerator struct {
	gotQuestion string
	gotContext  string
	answer      string
	err         error
}

func (f *fakeGenerator) GenerateAnswer(_ context.Context, question, contextBlock string) (string, error) {
	f.gotQuestion = question
	f.gotContext = contextBlock
	return f.answer, f.err
}

func TestAnswerAssemblesSourcesAndDiagnostics(t *testing.T) {
	fused := &domain.FusedContext{
		Results: []domain.MergedResult{
			{ChunkID: "c1", DocumentID: "d1", CollectionID: "col-a", Text: "body", FinalScore: 0.4},
		},
		Context:     "[Source 1] body",
		TotalTokens: 1,
		Strategy:    "enhanced_rrf",
		Diagnostics: domain.FusionDiagnostics{CollectionsSearched: 2, CollectionsFailed: 1},
	}
	generator := &fakeGenerator{answer: "the answer"}
	uc := NewQueryUseCase(&fakeFusionService{fused: fused}, generator)

	answer, err := uc.Answer(context.Background(), "why?", []string{"col-a"}, domain.DefaultFusionConfig())
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer.Text != "the answer" {
		t.Fatalf("unexpected answer text %q", answer.Text)
	}
	if generator.gotContext != fused.Context {
		t.Fatalf("generator must receive the fused context, got %q", generator.gotContext)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].ChunkID != "c1" {
		t.Fatalf("unexpected sources %+v", answer.Sources)
	}
	if answer.Diagnostics.CollectionsFailed != 1 {
		t.Fatalf("diagnostics must pass through, got %+v", answer.Diagnostics)
	}
}

func TestAnswerPropagatesFusionError(t *testing.T) {
	uc := NewQueryUseCase(&fakeFusionService{err: domain.ErrAllCollectionsFailed}, &fakeGenerator{})

	_, err := uc.Answer(context.Background(), "q", []string{"col-a"}, domain.DefaultFusionConfig())
	if !domain.IsKind(err, domain.ErrAllCollectionsFailed) {
		t.Fatalf("expected ErrAllCollectionsFailed, got %v", err)
	}
}

func TestAnswerPropagatesGeneratorError(t *testing.T) {
	fused := &domain.FusedContext{}
	uc := NewQueryUseCase(&fakeFusionService{fused: fused}, &fakeGenerator{err: errors.New("llm down")})

	_, err := uc.Answer(context.Background(), "q", []string{"col-a"}, domain.DefaultFusionConfig())
	if err == nil {
		t.Fatalf("expected generator error to propagate")
	}
}
