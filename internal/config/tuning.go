package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning is an optional YAML overlay for fusion knobs that change more often
// than the deployment environment: per-collection weights and the fusion
// parameters themselves. Zero values mean "keep the env default".
type Tuning struct {
	RRFK              float64            `yaml:"rrf_k"`
	DiversityPenalty  *float64           `yaml:"diversity_penalty"`
	MaxContextTokens  int                `yaml:"max_context_tokens"`
	CollectionWeights map[string]float64 `yaml:"collection_weights"`
}

func LoadTuning(path string) (Tuning, error) {
	if path == "" {
		return Tuning{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning file: %w", err)
	}

	var tuning Tuning
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning yaml: %w", err)
	}
	return tuning, nil
}

// Apply overlays the tuning file onto env-derived defaults.
func (t Tuning) Apply(cfg Config) Config {
	if t.RRFK > 0 {
		cfg.FusionRRFK = t.RRFK
	}
	if t.DiversityPenalty != nil {
		cfg.FusionDiversity = *t.DiversityPenalty
	}
	if t.MaxContextTokens > 0 {
		cfg.FusionMaxTokens = t.MaxContextTokens
	}
	return cfg
}
