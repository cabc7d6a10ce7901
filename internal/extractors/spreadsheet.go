package extractors

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// SpreadsheetExtractor parses .xlsx workbooks with excelize. Each sheet
// becomes one page holding a single table element; the sheet name is the
// page heading.
type SpreadsheetExtractor struct{}

// NewSpreadsheetExtractor creates a new SpreadsheetExtractor
func NewSpreadsheetExtractor() *SpreadsheetExtractor {
	return &SpreadsheetExtractor{}
}

func (e *SpreadsheetExtractor) Extract(ctx context.Context, req driven.ExtractionRequest) (*domain.RawDocument, error) {
	f, err := excelize.OpenReader(bytes.NewReader(req.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", domain.ErrExtractionFailed, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", domain.ErrExtractionFailed)
	}

	doc := &domain.RawDocument{
		PageCount: len(sheets),
		Method:    "xlsx",
	}
	for i, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := i + 1
		rows, err := f.GetRows(sheet)
		if err != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("sheet %q: %v", sheet, err))
			continue
		}
		table := make([][]string, 0, len(rows))
		for _, row := range rows {
			if rowHasContent(row) {
				table = append(table, row)
			}
		}
		doc.Elements = append(doc.Elements, domain.Element{
			Kind:  domain.ElementHeading,
			Level: 1,
			Text:  sheet,
			Page:  page,
		})
		if len(table) > 0 {
			doc.Elements = append(doc.Elements, domain.Element{
				Kind:  domain.ElementTable,
				Table: table,
				Page:  page,
			})
		}
	}
	return doc, nil
}

func (e *SpreadsheetExtractor) SupportsOCR() bool    { return false }
func (e *SpreadsheetExtractor) SupportsTables() bool { return true }
