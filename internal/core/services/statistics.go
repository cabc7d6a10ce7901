package services

import (
	"time"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

// BuildStatistics aggregates pipeline output counts. Word totals come from
// the normalized pages and token totals from the emitted chunks, so the
// figures always agree with the payload they describe. Timing is measured by
// the caller and injected.
func BuildStatistics(pages []*domain.Page, chunks []domain.Chunk, elapsed time.Duration) *domain.Statistics {
	stats := &domain.Statistics{
		TotalPages:       len(pages),
		TotalChunks:      len(chunks),
		ProcessingTimeMS: elapsed.Milliseconds(),
		ProcessingTime:   elapsed.Seconds(),
	}
	for _, p := range pages {
		stats.TotalWords += p.WordCount
	}
	for _, ch := range chunks {
		stats.TotalTokens += ch.TokenCount
	}
	return stats
}
