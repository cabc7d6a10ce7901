// Package extractors implements the per-format extraction backends behind
// the registry. Each extractor turns one document family into the raw
// element model; page numbering and text cleanup happen downstream.
package extractors

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// MarkupExtractor handles markdown, plain text, and HTML. HTML is converted
// to markdown first so one parser covers the whole family.
type MarkupExtractor struct {
	mdConverter *converter.Converter
}

// NewMarkupExtractor creates a new MarkupExtractor
func NewMarkupExtractor() *MarkupExtractor {
	return &MarkupExtractor{
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (e *MarkupExtractor) Extract(ctx context.Context, req driven.ExtractionRequest) (*domain.RawDocument, error) {
	text := string(req.Data)
	method := "markdown"

	if isHTML(req.Filename, req.Data) {
		md, err := e.mdConverter.ConvertString(text)
		if err != nil {
			return nil, fmt.Errorf("%w: html conversion: %v", domain.ErrExtractionFailed, err)
		}
		text = md
		method = "html"
	}

	elements := parseMarkdown(text)
	return &domain.RawDocument{
		Elements:  elements,
		PageCount: 1,
		Method:    method,
	}, nil
}

func (e *MarkupExtractor) SupportsOCR() bool    { return false }
func (e *MarkupExtractor) SupportsTables() bool { return true }

func isHTML(filename string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(data))
	if len(head) > 256 {
		head = head[:256]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.Contains(head, []byte("<html"))
}

// parseMarkdown splits markdown into heading, paragraph, and table elements.
// ATX headings (# through ######) delimit sections; blank lines delimit
// paragraphs; consecutive pipe-delimited lines form a table.
func parseMarkdown(text string) []domain.Element {
	lines := strings.Split(text, "\n")
	var elements []domain.Element
	var paragraph strings.Builder
	var tableRows [][]string

	flushParagraph := func() {
		body := strings.TrimSpace(paragraph.String())
		paragraph.Reset()
		if body != "" {
			elements = append(elements, domain.Element{Kind: domain.ElementParagraph, Text: body})
		}
	}
	flushTable := func() {
		if len(tableRows) > 0 {
			elements = append(elements, domain.Element{Kind: domain.ElementTable, Table: tableRows})
			tableRows = nil
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if cells, ok := parseTableRow(trimmed); ok {
			flushParagraph()
			if isTableSeparator(cells) {
				continue
			}
			tableRows = append(tableRows, cells)
			continue
		}
		flushTable()

		if strings.HasPrefix(trimmed, "#") {
			flushParagraph()
			level := 0
			for _, ch := range trimmed {
				if ch != '#' {
					break
				}
				level++
			}
			if level > 6 {
				level = 6
			}
			heading := strings.TrimSpace(strings.TrimRight(strings.TrimLeft(trimmed, "#"), "#"))
			if heading != "" {
				elements = append(elements, domain.Element{
					Kind:  domain.ElementHeading,
					Level: level,
					Text:  heading,
				})
			}
			continue
		}

		if trimmed == "" {
			flushParagraph()
			continue
		}

		if paragraph.Len() > 0 {
			paragraph.WriteByte(' ')
		}
		paragraph.WriteString(trimmed)
	}
	flushParagraph()
	flushTable()

	return elements
}

// parseTableRow recognizes a markdown table line: | a | b |
func parseTableRow(line string) ([]string, bool) {
	if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") || len(line) < 2 {
		return nil, false
	}
	inner := line[1 : len(line)-1]
	parts := strings.Split(inner, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells, true
}

// isTableSeparator matches the |---|---| row under a table header.
func isTableSeparator(cells []string) bool {
	for _, c := range cells {
		if c == "" {
			return false
		}
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return len(cells) > 0
}
