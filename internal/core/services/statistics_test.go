package services

import (
	"testing"
	"time"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

func TestBuildStatistics(t *testing.T) {
	pages := []*domain.Page{
		{Number: 1, Text: "one two three", WordCount: 3},
		{Number: 2, Text: "four five", WordCount: 2},
	}
	chunks := []domain.Chunk{
		{Index: 0, Text: "one two three", TokenCount: 4},
		{Index: 1, Text: "four five", TokenCount: 3},
	}

	stats := BuildStatistics(pages, chunks, 1500*time.Millisecond)
	if stats.TotalPages != 2 {
		t.Errorf("TotalPages = %d, want 2", stats.TotalPages)
	}
	if stats.TotalWords != 5 {
		t.Errorf("TotalWords = %d, want 5", stats.TotalWords)
	}
	if stats.TotalChunks != 2 {
		t.Errorf("TotalChunks = %d, want 2", stats.TotalChunks)
	}
	if stats.TotalTokens != 7 {
		t.Errorf("TotalTokens = %d, want 7", stats.TotalTokens)
	}
	if stats.ProcessingTimeMS != 1500 {
		t.Errorf("ProcessingTimeMS = %d, want 1500", stats.ProcessingTimeMS)
	}
	if stats.ProcessingTime != 1.5 {
		t.Errorf("ProcessingTime = %v, want 1.5", stats.ProcessingTime)
	}
}

func TestBuildStatisticsEmpty(t *testing.T) {
	stats := BuildStatistics(nil, nil, 0)
	if stats.TotalPages != 0 || stats.TotalWords != 0 || stats.TotalChunks != 0 || stats.TotalTokens != 0 {
		t.Errorf("zero input should give zero totals: %+v", stats)
	}
}
