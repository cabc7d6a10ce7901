package extractors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// LegacyOfficeExtractor handles binary-era office formats (.doc, .xls, .ppt,
// .rtf) by rendering them to a modern equivalent and delegating to that
// format's extractor.
type LegacyOfficeExtractor struct {
	renderer func() driven.DocumentRenderer
	dispatch func(targetExt string) driven.Extractor
}

// NewLegacyOfficeExtractor creates a new LegacyOfficeExtractor. renderer may
// return nil when no conversion backend is configured.
func NewLegacyOfficeExtractor(renderer func() driven.DocumentRenderer, dispatch func(targetExt string) driven.Extractor) *LegacyOfficeExtractor {
	if renderer == nil {
		renderer = func() driven.DocumentRenderer { return nil }
	}
	return &LegacyOfficeExtractor{renderer: renderer, dispatch: dispatch}
}

func (e *LegacyOfficeExtractor) Extract(ctx context.Context, req driven.ExtractionRequest) (*domain.RawDocument, error) {
	r := e.renderer()
	if r == nil {
		return nil, fmt.Errorf("%w: no document renderer configured for legacy formats", domain.ErrExtractorUnavailable)
	}

	sourceExt := strings.ToLower(filepath.Ext(req.Filename))
	rendered, targetExt, err := r.Render(ctx, req.Data, sourceExt)
	if err != nil {
		return nil, fmt.Errorf("%w: render %s: %v", domain.ErrExtractionFailed, sourceExt, err)
	}

	next := e.dispatch(targetExt)
	if next == nil {
		return nil, fmt.Errorf("%w: no extractor for rendered format %s", domain.ErrExtractorUnavailable, targetExt)
	}

	doc, err := next.Extract(ctx, driven.ExtractionRequest{
		Filename: strings.TrimSuffix(req.Filename, sourceExt) + targetExt,
		Data:     rendered,
		Options:  req.Options,
	})
	if err != nil {
		return nil, err
	}
	doc.Method = "legacy-office via " + doc.Method
	return doc, nil
}

func (e *LegacyOfficeExtractor) SupportsOCR() bool    { return false }
func (e *LegacyOfficeExtractor) SupportsTables() bool { return true }
