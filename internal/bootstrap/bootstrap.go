package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/advanced-rag/fusion-engine/internal/config"
	"github.com/advanced-rag/fusion-engine/internal/core/domain"
	"github.com/advanced-rag/fusion-engine/internal/core/fusion"
	"github.com/advanced-rag/fusion-engine/internal/core/ports"
	"github.com/advanced-rag/fusion-engine/internal/core/usecase"
	"github.com/advanced-rag/fusion-engine/internal/infrastructure/cache/lru"
	"github.com/advanced-rag/fusion-engine/internal/infrastructure/llm/ollama"
	"github.com/advanced-rag/fusion-engine/internal/infrastructure/queue/nats"
	"github.com/advanced-rag/fusion-engine/internal/infrastructure/repository/postgres"
	"github.com/advanced-rag/fusion-engine/internal/infrastructure/resilience"
	"github.com/advanced-rag/fusion-engine/internal/infrastructure/vector/qdrant"
	"github.com/advanced-rag/fusion-engine/internal/observability/logging"
	"github.com/advanced-rag/fusion-engine/internal/observability/metrics"
)

const serviceName = "fusion-engine"

type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *metrics.HTTPServerMetrics
	Defaults domain.FusionConfig

	Registry *postgres.CollectionRepository
	Bus      ports.EventBus
	Cache    ports.ResultCache
	FusionUC ports.FusionService
	QueryUC  ports.RAGQueryService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	tuning, err := config.LoadTuning(cfg.TuningPath)
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}
	cfg = tuning.Apply(cfg)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	registry := postgres.NewCollectionRepository(db)
	if err := registry.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	enabled, err := registry.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	logger.Info("collections_registered", "enabled", len(enabled))

	bus, err := nats.New(cfg.NATSURL, cfg.NATSSubject)
	if err != nil {
		return nil, fmt.Errorf("init event bus: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	ollamaClient := ollama.NewWithExecutor(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	searcher := qdrant.New(cfg.QdrantURL, qdrant.Options{
		CollectionPrefix:   cfg.QdrantCollectionPrefix,
		ScoreThreshold:     cfg.QdrantScoreThreshold,
		RateLimitQPS:       cfg.QdrantRateLimitQPS,
		ResilienceExecutor: executor,
	})

	engine := fusion.NewEngine(searcher, logger, fusion.Options{
		MaxConcurrency: cfg.FusionConcurrency,
		SearchTimeout:  time.Duration(cfg.FusionSearchTimeout) * time.Millisecond,
	})

	m := metrics.NewHTTPServerMetrics(serviceName)
	cache := &instrumentedCache{
		inner:   lru.New(cfg.CacheSize, time.Duration(cfg.CacheTTLSeconds)*time.Second),
		metrics: m,
	}

	fusionUC := usecase.NewFusionUseCase(registry, embedder, engine, cache, logger, cfg.RAGTopK)
	queryUC := usecase.NewQueryUseCase(fusionUC, generator)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Defaults: domain.FusionConfig{
			RRFK:              cfg.FusionRRFK,
			CollectionWeights: tuning.CollectionWeights,
			DiversityFactor:   cfg.FusionDiversity,
			MaxContextTokens:  cfg.FusionMaxTokens,
		},
		Registry: registry,
		Bus:      bus,
		Cache:    cache,
		FusionUC: fusionUC,
		QueryUC:  queryUC,
		closeFn: func() {
			bus.Close()
			_ = db.Close()
		},
	}, nil
}

// RunCacheInvalidation blocks on the collection-change subscription until ctx
// is cancelled, dropping cached results for each changed collection.
func (a *App) RunCacheInvalidation(ctx context.Context) error {
	return a.Bus.SubscribeCollectionChanged(ctx, func(_ context.Context, collectionID string) error {
		a.Cache.InvalidateCollection(collectionID)
		a.Logger.Info("cache_invalidated", "collection_id", collectionID)
		return nil
	})
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

type instrumentedCache struct {
	inner   ports.ResultCache
	metrics *metrics.HTTPServerMetrics
}

func (c *instrumentedCache) Get(key string) (*domain.FusedContext, bool) {
	value, ok := c.inner.Get(key)
	if ok {
		c.metrics.RecordCacheHit(serviceName)
	} else {
		c.metrics.RecordCacheMiss(serviceName)
	}
	return value, ok
}

func (c *instrumentedCache) Set(key string, collectionIDs []string, value *domain.FusedContext) {
	c.inner.Set(key, collectionIDs, value)
}

func (c *instrumentedCache) InvalidateCollection(collectionID string) {
	c.metrics.RecordCacheInvalidation(serviceName)
	c.inner.InvalidateCollection(collectionID)
}
