package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
	"github.com/advanced-rag/fusion-engine/internal/core/fusion"
	"github.com/advanced-rag/fusion-engine/internal/core/ports"
)

const defaultTopK = 5

// FusionUseCase orchestrates one fusion query: it resolves the requested
// collections against the registry, embeds the query, runs the pure fusion
// engine and layers the result cache around it. The cache lives here, not in
// the engine, so the pipeline stays a pure function of its inputs.
type FusionUseCase struct {
	registry ports.CollectionRegistry
	embedder ports.Embedder
	engine   *fusion.Engine
	cache    ports.ResultCache
	logger   *slog.Logger
	topK     int
}

func NewFusionUseCase(
	registry ports.CollectionRegistry,
	embedder ports.Embedder,
	engine *fusion.Engine,
	cache ports.ResultCache,
	logger *slog.Logger,
	topK int,
) *FusionUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	return &FusionUseCase{
		registry: registry,
		embedder: embedder,
		engine:   engine,
		cache:    cache,
		logger:   logger,
		topK:     topK,
	}
}

func (uc *FusionUseCase) FuseAndSelect(
	ctx context.Context,
	query string,
	collectionIDs []string,
	cfg domain.FusionConfig,
) (*domain.FusedContext, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "fuse and select", fmt.Errorf("query is empty"))
	}

	ids := uniqueSorted(collectionIDs)
	if len(ids) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "fuse and select", fmt.Errorf("no collections requested"))
	}

	collections, err := uc.registry.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve collections: %w", err)
	}
	enabled, err := enabledCollections(ids, collections)
	if err != nil {
		return nil, err
	}
	cfg = mergeRegistryWeights(cfg, enabled)

	key := cacheKey(query, ids, cfg)
	if uc.cache != nil {
		if cached, ok := uc.cache.Get(key); ok {
			uc.logger.Debug("fusion_cache_hit", "key", key)
			return cached, nil
		}
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Over-fetch per collection so fusion has enough overlap to work with.
	fused, err := uc.engine.Fuse(ctx, queryVector, ids, uc.topK*2, cfg)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		uc.cache.Set(key, ids, fused)
	}
	return fused, nil
}

// enabledCollections checks every requested id is registered and enabled.
func enabledCollections(ids []string, collections []domain.Collection) ([]domain.Collection, error) {
	byID := make(map[string]domain.Collection, len(collections))
	for _, c := range collections {
		byID[c.ID] = c
	}
	out := make([]domain.Collection, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok || !c.Enabled {
			return nil, domain.WrapError(domain.ErrCollectionNotFound, "resolve collections",
				fmt.Errorf("collection %q is not registered or disabled", id))
		}
		out = append(out, c)
	}
	return out, nil
}

// mergeRegistryWeights fills per-collection weights from the registry for
// collections the caller did not weight explicitly. Explicit weights win.
func mergeRegistryWeights(cfg domain.FusionConfig, collections []domain.Collection) domain.FusionConfig {
	merged := make(map[string]float64, len(collections))
	for _, c := range collections {
		if c.DefaultWeight > 0 && c.DefaultWeight != 1.0 {
			merged[c.ID] = c.DefaultWeight
		}
	}
	for id, w := range cfg.CollectionWeights {
		merged[id] = w
	}
	if len(merged) > 0 {
		cfg.CollectionWeights = merged
	}
	return cfg
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// cacheKey hashes (query, collection set, config) so a change to any of them
// misses the cache.
func cacheKey(query string, ids []string, cfg domain.FusionConfig) string {
	h := sha256.New()
	fmt.Fprintf(h, "q=%s\n", query)
	fmt.Fprintf(h, "ids=%s\n", strings.Join(ids, ","))
	fmt.Fprintf(h, "k=%g d=%g t=%d\n", cfg.RRFK, cfg.DiversityFactor, cfg.MaxContextTokens)

	weightIDs := make([]string, 0, len(cfg.CollectionWeights))
	for id := range cfg.CollectionWeights {
		weightIDs = append(weightIDs, id)
	}
	sort.Strings(weightIDs)
	for _, id := range weightIDs {
		fmt.Fprintf(h, "w.%s=%g\n", id, cfg.CollectionWeights[id])
	}
	return hex.EncodeToString(h.Sum(nil))
}
