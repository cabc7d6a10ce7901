package extractors

import (
	"context"
	"fmt"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// ImageExtractor turns raster images into a single synthetic page. With OCR
// enabled it runs the configured engine; the engine is resolved per call so
// a backend registered after startup is picked up.
type ImageExtractor struct {
	engine func() driven.OCREngine
}

// NewImageExtractor creates a new ImageExtractor. engine may return nil when
// no OCR backend is configured.
func NewImageExtractor(engine func() driven.OCREngine) *ImageExtractor {
	if engine == nil {
		engine = func() driven.OCREngine { return nil }
	}
	return &ImageExtractor{engine: engine}
}

func (e *ImageExtractor) Extract(ctx context.Context, req driven.ExtractionRequest) (*domain.RawDocument, error) {
	if !req.Options.OCREnabled {
		// Without OCR an image yields a single zero-text page; the job still
		// completes so callers get statistics and the image placeholder.
		return &domain.RawDocument{
			Elements:  []domain.Element{{Kind: domain.ElementImage, Page: 1}},
			PageCount: 1,
			Method:    "image",
			Warnings:  []string{"ocr disabled, image content not recognized"},
		}, nil
	}

	ocr := e.engine()
	if ocr == nil {
		return nil, fmt.Errorf("%w: no ocr engine configured", domain.ErrExtractorUnavailable)
	}

	text, err := ocr.Recognize(ctx, req.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: ocr: %v", domain.ErrExtractionFailed, err)
	}

	doc := &domain.RawDocument{
		PageCount: 1,
		Method:    "image-ocr",
	}
	doc.Elements = append(doc.Elements, domain.Element{Kind: domain.ElementImage, Page: 1})
	for _, para := range splitParagraphs(text) {
		doc.Elements = append(doc.Elements, domain.Element{Kind: domain.ElementParagraph, Text: para, Page: 1})
	}
	return doc, nil
}

func (e *ImageExtractor) SupportsOCR() bool    { return e.engine() != nil }
func (e *ImageExtractor) SupportsTables() bool { return false }
