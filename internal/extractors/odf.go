package extractors

import (
	"context"
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// ODFExtractor parses OpenDocument files (.odt, .ods, .odp) by streaming
// content.xml from the ZIP archive. Headings carry their outline level;
// table:table blocks become table elements.
type ODFExtractor struct{}

// NewODFExtractor creates a new ODFExtractor
func NewODFExtractor() *ODFExtractor {
	return &ODFExtractor{}
}

func (e *ODFExtractor) Extract(ctx context.Context, req driven.ExtractionRequest) (*domain.RawDocument, error) {
	rc, err := openZipEntry(req.Data, "content.xml")
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var elements []domain.Element
	var currentText strings.Builder
	var inHeading, inParagraph bool
	var headingLevel int

	var inTable, inCell bool
	var tableRows [][]string
	var currentRow []string
	var cellText strings.Builder

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "h": // <text:h>
				inHeading = true
				currentText.Reset()
				headingLevel = 1
				for _, attr := range t.Attr {
					if attr.Name.Local == "outline-level" {
						if n, err := strconv.Atoi(attr.Value); err == nil {
							headingLevel = n
						}
					}
				}
			case "p": // <text:p>
				if inCell {
					continue
				}
				inParagraph = true
				currentText.Reset()
			case "table": // <table:table>
				inTable = true
				tableRows = nil
			case "table-row":
				if inTable {
					currentRow = nil
				}
			case "table-cell":
				if inTable {
					inCell = true
					cellText.Reset()
				}
			}

		case xml.CharData:
			switch {
			case inCell:
				cellText.Write(t)
			case inHeading || inParagraph:
				currentText.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "h":
				if inHeading {
					inHeading = false
					if text := strings.TrimSpace(currentText.String()); text != "" {
						elements = append(elements, domain.Element{Kind: domain.ElementHeading, Level: headingLevel, Text: text})
					}
				}
			case "p":
				if inParagraph && !inCell {
					inParagraph = false
					if text := strings.TrimSpace(currentText.String()); text != "" {
						elements = append(elements, domain.Element{Kind: domain.ElementParagraph, Text: text})
					}
				}
			case "table-cell":
				if inTable {
					inCell = false
					currentRow = append(currentRow, strings.TrimSpace(cellText.String()))
				}
			case "table-row":
				if inTable && rowHasContent(currentRow) {
					tableRows = append(tableRows, currentRow)
					currentRow = nil
				}
			case "table":
				inTable = false
				if len(tableRows) > 0 {
					elements = append(elements, domain.Element{Kind: domain.ElementTable, Table: tableRows})
					tableRows = nil
				}
			}
		}
	}

	return &domain.RawDocument{
		Elements:  elements,
		PageCount: 1,
		Method:    "odf",
	}, nil
}

func (e *ODFExtractor) SupportsOCR() bool    { return false }
func (e *ODFExtractor) SupportsTables() bool { return true }

func rowHasContent(row []string) bool {
	for _, c := range row {
		if c != "" {
			return true
		}
	}
	return false
}
