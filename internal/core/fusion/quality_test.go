package fusion

import (
	"strings"
	"testing"
	"time"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
)

func TestLengthMultiplier(t *testing.T) {
	cases := []struct {
		chars int
		want  float64
	}{
		{0, 0.8},
		{99, 0.8},
		{100, 1.0},
		{199, 1.0},
		{200, 1.1},
		{1000, 1.1},
		{1001, 1.0},
		{2000, 1.0},
		{2001, 0.9},
	}
	for _, tc := range cases {
		if got := lengthMultiplier(tc.chars); got != tc.want {
			t.Fatalf("lengthMultiplier(%d) = %v, want %v", tc.chars, got, tc.want)
		}
	}
}

func TestQualityMultiplierCountsRunesNotBytes(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	// 150 Cyrillic runes are 300 bytes: the rune count lands in the
	// neutral 100..199 band, a byte count would land in 200..1000.
	c := domain.Candidate{Text: strings.Repeat("ф", 150)}
	if got := qualityMultiplier(c, now); got != 1.0 {
		t.Fatalf("multibyte multiplier = %v, want 1.0", got)
	}

	c.Text = strings.Repeat("ф", 500)
	if got := qualityMultiplier(c, now); got != 1.1 {
		t.Fatalf("multibyte sweet-spot multiplier = %v, want 1.1", got)
	}
}

func TestQualityMultiplierMetadataBonuses(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	text := strings.Repeat("a", 500) // sweet spot, base 1.1

	c := domain.Candidate{Text: text}
	if got := qualityMultiplier(c, now); got != 1.1 {
		t.Fatalf("plain candidate multiplier = %v, want 1.1", got)
	}

	c.Metadata.HasTitle = true
	if got, want := qualityMultiplier(c, now), 1.1*1.05; got != want {
		t.Fatalf("has_title multiplier = %v, want %v", got, want)
	}

	c.Metadata.FileType = "PDF"
	if got, want := qualityMultiplier(c, now), 1.1*1.05*1.02; got != want {
		t.Fatalf("pdf multiplier = %v, want %v", got, want)
	}

	c.Metadata.CreatedAt = now.Add(-10 * 24 * time.Hour)
	if got, want := qualityMultiplier(c, now), 1.1*1.05*1.02*1.03; got != want {
		t.Fatalf("recent multiplier = %v, want %v", got, want)
	}

	c.Metadata.CreatedAt = now.Add(-45 * 24 * time.Hour)
	if got, want := qualityMultiplier(c, now), 1.1*1.05*1.02; got != want {
		t.Fatalf("stale multiplier = %v, want %v", got, want)
	}
}

func TestQualityMultiplierAbsentMetadataIsNeutral(t *testing.T) {
	now := time.Now()
	c := domain.Candidate{Text: strings.Repeat("b", 150)}
	if got := qualityMultiplier(c, now); got != 1.0 {
		t.Fatalf("absent metadata must be neutral, got %v", got)
	}
}

func TestAdjustQualityFillsQualityScore(t *testing.T) {
	now := time.Now()
	candidates := []domain.ScoredCandidate{
		{Candidate: domain.Candidate{ChunkID: "c1", Text: strings.Repeat("a", 500)}, WeightedScore: 0.5},
	}
	adjustQuality(candidates, now)
	if got, want := candidates[0].QualityScore, 0.5*1.1; got != want {
		t.Fatalf("quality score = %v, want %v", got, want)
	}
	if candidates[0].WeightedScore != 0.5 {
		t.Fatalf("earlier stage score must be preserved")
	}
}
