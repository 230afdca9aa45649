package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
	"github.com/advanced-rag/fusion-engine/internal/core/fusion"
	"github.com/advanced-rag/fusion-engine/internal/core/ports"
)

// QueryUseCase runs the full retrieve-then-answer flow: fuse the requested
// collections into a context block, then hand it to the generator.
type QueryUseCase struct {
	fusionService ports.FusionService
	generator     ports.AnswerGenerator
}

func NewQueryUseCase(fusionService ports.FusionService, generator ports.AnswerGenerator) *QueryUseCase {
	return &QueryUseCase{
		fusionService: fusionService,
		generator:     generator,
	}
}

func (uc *QueryUseCase) Answer(
	ctx context.Context,
	question string,
	collectionIDs []string,
	cfg domain.FusionConfig,
) (*domain.Answer, error) {
	start := time.Now()

	fused, err := uc.fusionService.FuseAndSelect(ctx, question, collectionIDs, cfg)
	if err != nil {
		return nil, err
	}

	answerText, err := uc.generator.GenerateAnswer(ctx, question, fused.Context)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{
		Text:             answerText,
		Sources:          fusion.SourceAttributions(fused.Results),
		ContextUsed:      fused.Context,
		Diagnostics:      fused.Diagnostics,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}, nil
}
