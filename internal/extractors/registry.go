package extractors

import (
	"fmt"
	"sort"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// Ensure Registry implements ExtractorRegistry
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Engines supplies the optional extraction backends. Providers are called
// per extraction so backends registered after startup are picked up; a
// provider returning nil means the capability is absent.
type Engines struct {
	OCR         func() driven.OCREngine
	Transcriber func() driven.Transcriber
	Renderer    func() driven.DocumentRenderer
}

// Registry maps document kinds to their extractors. Built once at startup
// and read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	extractors map[domain.DocumentKind]driven.Extractor
}

// NewRegistry wires every built-in extractor.
func NewRegistry(engines Engines) *Registry {
	markup := NewMarkupExtractor()
	docx := NewDocxExtractor()
	sheet := NewSpreadsheetExtractor()
	pptx := NewPptxExtractor()
	odf := NewODFExtractor()

	// Rendered legacy output re-enters through the modern extractors.
	dispatch := func(targetExt string) driven.Extractor {
		switch targetExt {
		case ".docx":
			return docx
		case ".xlsx":
			return sheet
		case ".pptx":
			return pptx
		case ".odt", ".ods", ".odp":
			return odf
		case ".txt", ".html":
			return markup
		}
		return nil
	}

	return &Registry{extractors: map[domain.DocumentKind]driven.Extractor{
		domain.KindPDF:          NewPDFExtractor(),
		domain.KindDocx:         docx,
		domain.KindXlsx:         sheet,
		domain.KindPptx:         pptx,
		domain.KindODF:          odf,
		domain.KindLegacyOffice: NewLegacyOfficeExtractor(engines.Renderer, dispatch),
		domain.KindMarkup:       markup,
		domain.KindData:         NewDataExtractor(),
		domain.KindImage:        NewImageExtractor(engines.OCR),
		domain.KindEmail:        NewEmailExtractor(markup),
		domain.KindEbook:        NewEbookExtractor(markup),
		domain.KindAudio:        NewAudioExtractor(engines.Transcriber),
	}}
}

// ExtractorFor returns the extractor registered for kind.
func (r *Registry) ExtractorFor(kind domain.DocumentKind) (driven.Extractor, error) {
	ex, ok := r.extractors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no extractor for kind %s", domain.ErrExtractorUnavailable, kind)
	}
	return ex, nil
}

// Kinds lists every kind with a registered extractor, sorted for stable output.
func (r *Registry) Kinds() []domain.DocumentKind {
	kinds := make([]domain.DocumentKind, 0, len(r.extractors))
	for k := range r.extractors {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
