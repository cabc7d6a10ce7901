package services

import (
	"sort"
	"strings"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

// Normalizer turns raw extractor output into the canonical page model:
// contiguous 1-based pages, cleaned text, word counts. Normalizing an
// already-normalized document changes nothing.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize builds the page list from a raw document. Elements carrying a
// page hint are grouped by it; hints are renumbered contiguously from 1 in
// ascending source order. Flat formats without hints become a single page.
func (n *Normalizer) Normalize(raw *domain.RawDocument, opts domain.ConvertOptions) []*domain.Page {
	grouped := make(map[int][]domain.Element)
	var hints []int
	for _, el := range raw.Elements {
		el = n.cleanElement(el, opts)
		if el.Text == "" && len(el.Table) == 0 && el.Kind != domain.ElementImage {
			continue
		}
		hint := el.Page
		if hint <= 0 {
			hint = 1
		}
		if _, seen := grouped[hint]; !seen {
			hints = append(hints, hint)
		}
		grouped[hint] = append(grouped[hint], el)
	}
	sort.Ints(hints)

	if len(hints) == 0 {
		// Keep a single empty page so downstream statistics stay well defined
		// even for documents that extract to nothing.
		return []*domain.Page{{Number: 1, Text: ""}}
	}

	pages := make([]*domain.Page, 0, len(hints))
	for i, hint := range hints {
		elements := grouped[hint]
		page := &domain.Page{
			Number:   i + 1,
			Elements: elements,
		}
		parts := make([]string, 0, len(elements))
		for j := range elements {
			elements[j].Page = page.Number
			if text := elements[j].TableText(); text != "" {
				parts = append(parts, text)
			}
		}
		page.Text = strings.Join(parts, "\n\n")
		page.WordCount = domain.CountWords(page.Text)
		pages = append(pages, page)
	}
	return pages
}

// RawText assembles the whole-document plain text from normalized pages,
// pages joined with blank lines.
func (n *Normalizer) RawText(pages []*domain.Page) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// cleanElement normalizes whitespace and demotes tables to flat paragraphs
// when table extraction is disabled.
func (n *Normalizer) cleanElement(el domain.Element, opts domain.ConvertOptions) domain.Element {
	el.Text = cleanText(el.Text)
	for i, row := range el.Table {
		for j := range row {
			el.Table[i][j] = cleanText(row[j])
		}
	}
	if el.Kind == domain.ElementTable && !opts.ExtractTables {
		el = domain.Element{
			Kind:  domain.ElementParagraph,
			Text:  el.TableText(),
			Page:  el.Page,
			BBox:  el.BBox,
			Level: 0,
		}
	}
	return el
}

// cleanText collapses horizontal whitespace runs per line and trims the
// result. Line structure inside an element is preserved.
func cleanText(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		out = append(out, line)
	}
	joined := strings.Join(out, "\n")
	// Collapse runs of blank lines left by the per-line pass.
	for strings.Contains(joined, "\n\n\n") {
		joined = strings.ReplaceAll(joined, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(joined)
}
