package extractors

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// DocxExtractor parses .docx files by streaming word/document.xml out of the
// ZIP archive. Paragraph styles map to heading levels; w:tbl blocks become
// table elements.
type DocxExtractor struct{}

// NewDocxExtractor creates a new DocxExtractor
func NewDocxExtractor() *DocxExtractor {
	return &DocxExtractor{}
}

func (e *DocxExtractor) Extract(ctx context.Context, req driven.ExtractionRequest) (*domain.RawDocument, error) {
	rc, err := openZipEntry(req.Data, "word/document.xml")
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var elements []domain.Element
	var currentText strings.Builder
	var inParagraph bool
	var paragraphStyle string

	var inTable bool
	var tableRows [][]string
	var currentRow []string
	var cellText strings.Builder
	var inCell bool

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
			case "tbl":
				inTable = true
				tableRows = nil
			case "tr":
				if inTable {
					currentRow = nil
				}
			case "tc":
				if inTable {
					inCell = true
					cellText.Reset()
				}
			case "p":
				if !inTable {
					inParagraph = true
					currentText.Reset()
					paragraphStyle = ""
				}
			case "pStyle":
				if inParagraph {
					for _, attr := range t.Attr {
						if attr.Name.Local == "val" {
							paragraphStyle = attr.Value
						}
					}
				}
			}

		case xml.CharData:
			switch {
			case inCell:
				cellText.Write(t)
			case inParagraph:
				currentText.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "tc":
				if inTable {
					inCell = false
					currentRow = append(currentRow, strings.TrimSpace(cellText.String()))
				}
			case "tr":
				if inTable && len(currentRow) > 0 {
					tableRows = append(tableRows, currentRow)
					currentRow = nil
				}
			case "tbl":
				inTable = false
				if len(tableRows) > 0 {
					elements = append(elements, domain.Element{Kind: domain.ElementTable, Table: tableRows})
					tableRows = nil
				}
			case "p":
				if inParagraph {
					inParagraph = false
					text := strings.TrimSpace(currentText.String())
					if text == "" {
						continue
					}
					if level := docxHeadingLevel(paragraphStyle); level > 0 {
						elements = append(elements, domain.Element{Kind: domain.ElementHeading, Level: level, Text: text})
					} else {
						elements = append(elements, domain.Element{Kind: domain.ElementParagraph, Text: text})
					}
				}
			}
		}
	}

	return &domain.RawDocument{
		Elements:  elements,
		PageCount: 1,
		Method:    "docx",
	}, nil
}

func (e *DocxExtractor) SupportsOCR() bool    { return false }
func (e *DocxExtractor) SupportsTables() bool { return true }

// docxHeadingLevel extracts the heading level from a paragraph style name.
// e.g. "Heading1" -> 1, "Title" -> 1, "Subtitle" -> 2.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(style)

	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}

	// "Heading1", "heading1", localized variants.
	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := lower[len(prefix):]
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}

// openZipEntry opens one named file inside an in-memory ZIP archive.
func openZipEntry(data []byte, name string) (io.ReadCloser, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open zip: %v", domain.ErrExtractionFailed, err)
	}
	for _, f := range r.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("%w: open %s: %v", domain.ErrExtractionFailed, name, err)
			}
			return rc, nil
		}
	}
	return nil, fmt.Errorf("%w: %s not found in archive", domain.ErrExtractionFailed, name)
}
