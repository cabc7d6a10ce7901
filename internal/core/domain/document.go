package domain

import (
	"strings"
	"unicode/utf8"
)

// DocumentKind identifies a supported document family.
// Derived once per request by the format classifier and never re-sniffed.
type DocumentKind string

const (
	KindPDF          DocumentKind = "pdf"
	KindDocx         DocumentKind = "docx"
	KindXlsx         DocumentKind = "xlsx"
	KindPptx         DocumentKind = "pptx"
	KindLegacyOffice DocumentKind = "legacy-office"
	KindODF          DocumentKind = "odf"
	KindMarkup       DocumentKind = "markup"
	KindData         DocumentKind = "data"
	KindImage        DocumentKind = "image"
	KindEmail        DocumentKind = "email"
	KindEbook        DocumentKind = "ebook"
	KindAudio        DocumentKind = "audio"
)

// Kinds lists every supported document kind.
func Kinds() []DocumentKind {
	return []DocumentKind{
		KindPDF, KindDocx, KindXlsx, KindPptx, KindLegacyOffice, KindODF,
		KindMarkup, KindData, KindImage, KindEmail, KindEbook, KindAudio,
	}
}

// ElementKind identifies the type of a page element.
type ElementKind string

const (
	ElementParagraph ElementKind = "paragraph"
	ElementHeading   ElementKind = "heading"
	ElementTable     ElementKind = "table"
	ElementImage     ElementKind = "image"
	ElementCaption   ElementKind = "caption"
)

// BoundingBox locates an element in source coordinate space.
type BoundingBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Element is a typed unit of page content. Elements within a page preserve
// source reading order.
type Element struct {
	Kind  ElementKind  `json:"kind"`
	Level int          `json:"level,omitempty"` // heading level 1-6, 0 otherwise
	Text  string       `json:"text"`
	Table [][]string   `json:"table,omitempty"` // cell matrix, row-major
	Page  int          `json:"page,omitempty"`  // source page hint from the extractor, 0 = unknown
	BBox  *BoundingBox `json:"bbox,omitempty"`
}

// TableText renders a table cell matrix as flat pipe-delimited text.
// Used when extract_tables is disabled and for raw-text assembly.
func (e *Element) TableText() string {
	if len(e.Table) == 0 {
		return e.Text
	}
	lines := make([]string, 0, len(e.Table))
	for _, row := range e.Table {
		lines = append(lines, strings.Join(row, " | "))
	}
	return strings.Join(lines, "\n")
}

// Page is an ordered container of elements with a contiguous 1-based number.
// Owned exclusively by the conversion job that produced it.
type Page struct {
	Number    int       `json:"page_number"`
	Elements  []Element `json:"elements,omitempty"`
	Text      string    `json:"text"`
	WordCount int       `json:"word_count"`
}

// RawDocument is the extractor output before normalization: elements in
// reading order with optional page hints, plus extraction metadata.
type RawDocument struct {
	Elements  []Element         `json:"elements"`
	PageCount int               `json:"page_count"`
	Method    string            `json:"extraction_method"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
}

// ChunkStrategy selects how normalized pages are segmented.
type ChunkStrategy string

const (
	StrategyNone     ChunkStrategy = "none"
	StrategyFixed    ChunkStrategy = "fixed"
	StrategySemantic ChunkStrategy = "semantic"
)

// Chunk is a contiguous span of extracted text sized for LLM consumption.
type Chunk struct {
	Index      int           `json:"index"`
	Text       string        `json:"text"`
	TokenCount int           `json:"token_count"`
	Pages      []int         `json:"source_pages"`
	Strategy   ChunkStrategy `json:"strategy"`
}

// Statistics aggregates pipeline output counts plus wall-clock timing
// measured by the orchestrator.
type Statistics struct {
	TotalPages       int     `json:"total_pages"`
	TotalWords       int     `json:"total_words"`
	TotalChunks      int     `json:"total_chunks"`
	TotalTokens      int     `json:"total_tokens"`
	ProcessingTimeMS int64   `json:"processing_time_ms"`
	ProcessingTime   float64 `json:"processing_time_seconds"`
}

// CountWords returns the whitespace-delimited token count of text.
// strings.Fields splits on Unicode whitespace, so this is Unicode-aware.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// CountTokens approximates the token count of text for LLM budgeting.
// Deterministic by construction: ceil(runes / 4), the same heuristic the
// usual cl100k fallback uses. Exact parity with any tokenizer is not a
// contract - only consistency across runs is.
func CountTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}
