package fusion

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/advanced-rag/fusion-engine/internal/core/domain"
)

const previewChars = 200

// RenderContext builds the prompt context block from selected results:
// numbered [Source i] sections separated by blank lines, in the order the
// pipeline produced them.
func RenderContext(results []domain.MergedResult) string {
	if len(results) == 0 {
		return ""
	}
	parts := make([]string, 0, len(results))
	for i, r := range results {
		parts = append(parts, fmt.Sprintf("[Source %d] %s", i+1, r.Text))
	}
	return strings.Join(parts, "\n\n")
}

// SourceAttributions maps selected results to user-facing source references
// with a short text preview.
func SourceAttributions(results []domain.MergedResult) []domain.SourceAttribution {
	sources := make([]domain.SourceAttribution, 0, len(results))
	for i, r := range results {
		filename := r.Metadata.Filename
		if filename == "" {
			filename = "Unknown"
		}
		// Truncate on a rune boundary so multibyte text never yields a
		// broken trailing sequence.
		preview := r.Text
		if utf8.RuneCountInString(preview) > previewChars {
			runes := []rune(preview)
			preview = string(runes[:previewChars]) + "..."
		}
		sources = append(sources, domain.SourceAttribution{
			DocumentID:     r.DocumentID,
			ChunkID:        r.ChunkID,
			CollectionID:   r.CollectionID,
			Filename:       filename,
			Preview:        preview,
			RelevanceScore: r.FinalScore,
			Sequence:       i + 1,
		})
	}
	return sources
}
