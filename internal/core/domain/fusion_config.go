package domain

import "fmt"

const (
	DefaultRRFK             = 60.0
	DefaultDiversityFactor  = 0.1
	DefaultMaxContextTokens = 8000
)

// FusionConfig tunes one fusion run. It is supplied by the caller per query;
// the engine never reads configuration from the environment itself.
type FusionConfig struct {
	// RRFK is the reciprocal rank fusion damping constant. Must be > 0.
	RRFK float64 `json:"rrf_k" yaml:"rrf_k"`

	// CollectionWeights maps collection id to a multiplicative weight
	// applied after fusion. Unset collections weigh 1.0.
	CollectionWeights map[string]float64 `json:"collection_weights,omitempty" yaml:"collection_weights"`

	// DiversityFactor in [0,1] scales the near-duplicate penalty.
	// 0 disables the similarity computation entirely.
	DiversityFactor float64 `json:"diversity_factor" yaml:"diversity_factor"`

	// MaxContextTokens is the hard estimated-token budget for the
	// assembled context. Must be > 0.
	MaxContextTokens int `json:"max_context_tokens" yaml:"max_context_tokens"`
}

func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		RRFK:             DefaultRRFK,
		DiversityFactor:  DefaultDiversityFactor,
		MaxContextTokens: DefaultMaxContextTokens,
	}
}

// Validate rejects misconfiguration before any collection is queried.
func (c FusionConfig) Validate() error {
	if c.RRFK <= 0 {
		return WrapError(ErrInvalidConfig, "validate fusion config", fmt.Errorf("rrf_k must be > 0, got %g", c.RRFK))
	}
	for id, w := range c.CollectionWeights {
		if w < 0 {
			return WrapError(ErrInvalidConfig, "validate fusion config", fmt.Errorf("weight for collection %q must be >= 0, got %g", id, w))
		}
	}
	if c.DiversityFactor < 0 || c.DiversityFactor > 1 {
		return WrapError(ErrInvalidConfig, "validate fusion config", fmt.Errorf("diversity_factor must be in [0,1], got %g", c.DiversityFactor))
	}
	if c.MaxContextTokens <= 0 {
		return WrapError(ErrInvalidConfig, "validate fusion config", fmt.Errorf("max_context_tokens must be > 0, got %d", c.MaxContextTokens))
	}
	return nil
}

// Weight returns the configured multiplier for a collection, 1.0 when unset.
func (c FusionConfig) Weight(collectionID string) float64 {
	if c.CollectionWeights == nil {
		return 1.0
	}
	w, ok := c.CollectionWeights[collectionID]
	if !ok {
		return 1.0
	}
	return w
}
