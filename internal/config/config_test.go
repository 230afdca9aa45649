package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadIncludesFusionDefaults(t *testing.T) {
	t.Setenv("FUSION_RRF_K", "")
	t.Setenv("FUSION_DIVERSITY_PENALTY", "")
	t.Setenv("FUSION_MAX_CONTEXT_TOKENS", "")
	t.Setenv("RAG_TOP_K", "")
	t.Setenv("QDRANT_SCORE_THRESHOLD", "")

	cfg := Load()
	if cfg.FusionRRFK != 60 {
		t.Fatalf("expected default rrf k 60, got %v", cfg.FusionRRFK)
	}
	if cfg.FusionDiversity != 0.1 {
		t.Fatalf("expected default diversity penalty 0.1, got %v", cfg.FusionDiversity)
	}
	if cfg.FusionMaxTokens != 8000 {
		t.Fatalf("expected default max context tokens 8000, got %d", cfg.FusionMaxTokens)
	}
	if cfg.RAGTopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.RAGTopK)
	}
	if cfg.QdrantScoreThreshold != 0.3 {
		t.Fatalf("expected default score threshold 0.3, got %v", cfg.QdrantScoreThreshold)
	}
}

func TestLoadParsesFusionOverrides(t *testing.T) {
	t.Setenv("FUSION_RRF_K", "75")
	t.Setenv("FUSION_DIVERSITY_PENALTY", "0.25")
	t.Setenv("FUSION_MAX_CONTEXT_TOKENS", "4000")
	t.Setenv("FUSION_SEARCH_TIMEOUT_MS", "250")

	cfg := Load()
	if cfg.FusionRRFK != 75 {
		t.Fatalf("expected rrf k 75, got %v", cfg.FusionRRFK)
	}
	if cfg.FusionDiversity != 0.25 {
		t.Fatalf("expected diversity penalty 0.25, got %v", cfg.FusionDiversity)
	}
	if cfg.FusionMaxTokens != 4000 {
		t.Fatalf("expected max context tokens 4000, got %d", cfg.FusionMaxTokens)
	}
	if cfg.FusionSearchTimeout != 250 {
		t.Fatalf("expected search timeout 250, got %d", cfg.FusionSearchTimeout)
	}
}

func TestLoadTuningOverlaysConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	content := []byte("rrf_k: 40\ndiversity_penalty: 0\ncollection_weights:\n  docs: 1.5\n  wiki: 0.5\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write tuning file: %v", err)
	}

	tuning, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning() error = %v", err)
	}
	if tuning.CollectionWeights["docs"] != 1.5 {
		t.Fatalf("expected docs weight 1.5, got %v", tuning.CollectionWeights["docs"])
	}

	cfg := tuning.Apply(Config{FusionRRFK: 60, FusionDiversity: 0.1, FusionMaxTokens: 8000})
	if cfg.FusionRRFK != 40 {
		t.Fatalf("expected overlaid rrf k 40, got %v", cfg.FusionRRFK)
	}
	if cfg.FusionDiversity != 0 {
		t.Fatalf("expected explicit zero diversity penalty, got %v", cfg.FusionDiversity)
	}
	if cfg.FusionMaxTokens != 8000 {
		t.Fatalf("expected max context tokens untouched, got %d", cfg.FusionMaxTokens)
	}
}

func TestLoadTuningMissingPathIsEmpty(t *testing.T) {
	tuning, err := LoadTuning("")
	if err != nil {
		t.Fatalf("LoadTuning() error = %v", err)
	}
	if len(tuning.CollectionWeights) != 0 {
		t.Fatalf("expected empty tuning, got %+v", tuning)
	}
}
