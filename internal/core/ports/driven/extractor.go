package driven

import (
	"context"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

// ExtractionRequest is one extraction task. Filename is carried because some
// families span multiple on-disk syntaxes (markup covers markdown and HTML,
// data covers CSV and JSON); the extension disambiguates within the family.
type ExtractionRequest struct {
	Filename string
	Data     []byte
	Options  domain.ConvertOptions
}

// Extractor converts raw document bytes of one kind into a raw intermediate
// document. Implementations must be safe for concurrent use; one extractor
// instance serves all in-flight jobs of its kind.
type Extractor interface {
	// Extract parses the payload into elements in reading order.
	// Implementations check ctx between pages so a disconnected caller
	// abandons work promptly.
	Extract(ctx context.Context, req ExtractionRequest) (*domain.RawDocument, error)

	// SupportsOCR reports whether this extractor can rasterize and OCR content.
	SupportsOCR() bool

	// SupportsTables reports whether this extractor emits structured table cells.
	SupportsTables() bool
}

// ExtractorRegistry resolves the extractor responsible for a document kind.
// Dispatch is by kind only - no content sniffing beyond classification.
type ExtractorRegistry interface {
	ExtractorFor(kind domain.DocumentKind) (Extractor, error)

	// Kinds lists every kind with a registered extractor.
	Kinds() []domain.DocumentKind
}
