package extractors

import (
	"context"
	"fmt"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// AudioExtractor transcribes audio payloads into a single synthetic page.
type AudioExtractor struct {
	transcriber func() driven.Transcriber
}

// NewAudioExtractor creates a new AudioExtractor. transcriber may return nil
// when no speech backend is configured.
func NewAudioExtractor(transcriber func() driven.Transcriber) *AudioExtractor {
	if transcriber == nil {
		transcriber = func() driven.Transcriber { return nil }
	}
	return &AudioExtractor{transcriber: transcriber}
}

func (e *AudioExtractor) Extract(ctx context.Context, req driven.ExtractionRequest) (*domain.RawDocument, error) {
	tr := e.transcriber()
	if tr == nil {
		return nil, fmt.Errorf("%w: no transcription engine configured", domain.ErrExtractorUnavailable)
	}

	text, err := tr.Transcribe(ctx, req.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: transcription: %v", domain.ErrExtractionFailed, err)
	}

	doc := &domain.RawDocument{
		PageCount: 1,
		Method:    "audio-transcript",
	}
	for _, para := range splitParagraphs(text) {
		doc.Elements = append(doc.Elements, domain.Element{Kind: domain.ElementParagraph, Text: para, Page: 1})
	}
	return doc, nil
}

func (e *AudioExtractor) SupportsOCR() bool    { return false }
func (e *AudioExtractor) SupportsTables() bool { return false }
