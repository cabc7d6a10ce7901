package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// MockExtractor is an Extractor test double returning a canned document
type MockExtractor struct {
	mu sync.Mutex

	ExtractCalls int
	LastRequest  driven.ExtractionRequest

	Document *domain.RawDocument
	FailWith error
	Delay    time.Duration // simulate slow extraction, honoring ctx
	OCR      bool
	Tables   bool
}

// NewMockExtractor creates a MockExtractor that yields a single paragraph
func NewMockExtractor(text string) *MockExtractor {
	return &MockExtractor{
		Document: &domain.RawDocument{
			Elements: []domain.Element{
				{Kind: domain.ElementParagraph, Text: text, Page: 1},
			},
			PageCount: 1,
			Method:    "mock",
		},
	}
}

func (m *MockExtractor) Extract(ctx context.Context, req driven.ExtractionRequest) (*domain.RawDocument, error) {
	m.mu.Lock()
	m.ExtractCalls++
	m.LastRequest = req
	delay, failWith, doc := m.Delay, m.FailWith, m.Document
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	if failWith != nil {
		return nil, failWith
	}
	return doc, nil
}

func (m *MockExtractor) SupportsOCR() bool    { return m.OCR }
func (m *MockExtractor) SupportsTables() bool { return m.Tables }

// MockExtractorRegistry maps kinds to extractors for testing
type MockExtractorRegistry struct {
	Extractors map[domain.DocumentKind]*MockExtractor
}

// NewMockExtractorRegistry creates a registry with the given kinds wired to
// fresh single-paragraph extractors.
func NewMockExtractorRegistry(kinds ...domain.DocumentKind) *MockExtractorRegistry {
	r := &MockExtractorRegistry{Extractors: make(map[domain.DocumentKind]*MockExtractor)}
	for _, k := range kinds {
		r.Extractors[k] = NewMockExtractor("extracted text")
	}
	return r
}

func (r *MockExtractorRegistry) ExtractorFor(kind domain.DocumentKind) (driven.Extractor, error) {
	ex, ok := r.Extractors[kind]
	if !ok {
		return nil, domain.ErrExtractorUnavailable
	}
	return ex, nil
}

func (r *MockExtractorRegistry) Kinds() []domain.DocumentKind {
	out := make([]domain.DocumentKind, 0, len(r.Extractors))
	for k := range r.Extractors {
		out = append(out, k)
	}
	return out
}
