package services

import (
	"fmt"
	"strings"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

// Chunker segments normalized pages into chunks per the requested strategy.
// Chunking is pure: the same pages and options always produce the same chunks.
type Chunker struct{}

// NewChunker creates a new Chunker
func NewChunker() *Chunker {
	return &Chunker{}
}

// pageJoiner separates page texts in the document-wide text the fixed
// strategy windows over. Must match Normalizer.RawText.
const pageJoiner = "\n\n"

// Chunk segments pages with the strategy in opts.
func (c *Chunker) Chunk(pages []*domain.Page, opts domain.ConvertOptions) ([]domain.Chunk, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	switch opts.ChunkStrategy {
	case domain.StrategyNone:
		return c.chunkNone(pages), nil
	case domain.StrategyFixed:
		return c.chunkFixed(pages, opts.ChunkSize, opts.ChunkOverlap), nil
	case domain.StrategySemantic:
		return c.chunkSemantic(pages, opts.ChunkSize), nil
	}
	return nil, fmt.Errorf("%w: unknown chunk_strategy %q", domain.ErrInvalidConfiguration, opts.ChunkStrategy)
}

// chunkNone emits one chunk per non-empty page, in page order. Zero-text
// pages (scanned pages with OCR disabled) yield no chunk; they still count
// toward total_pages, and indices stay contiguous across the gap.
func (c *Chunker) chunkNone(pages []*domain.Page) []domain.Chunk {
	chunks := make([]domain.Chunk, 0, len(pages))
	for _, p := range pages {
		if p.Text == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			Index:      len(chunks),
			Text:       p.Text,
			TokenCount: domain.CountTokens(p.Text),
			Pages:      []int{p.Number},
			Strategy:   domain.StrategyNone,
		})
	}
	return chunks
}

// chunkFixed slides an exact rune window over the whole-document text.
// Window i covers [i*(size-overlap), i*(size-overlap)+size); the final window
// is shorter when the text runs out. Consecutive chunks therefore share
// exactly overlap runes, so stripping the first overlap runes from every
// chunk after the first reconstructs the source text.
func (c *Chunker) chunkFixed(pages []*domain.Page, size, overlap int) []domain.Chunk {
	text, bounds := joinPages(pages)
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	step := size - overlap
	var chunks []domain.Chunk
	for start := 0; start < n; start += step {
		end := start + size
		if end > n {
			end = n
		}
		body := string(runes[start:end])
		chunks = append(chunks, domain.Chunk{
			Index:      len(chunks),
			Text:       body,
			TokenCount: domain.CountTokens(body),
			Pages:      pagesInRange(bounds, start, end),
			Strategy:   domain.StrategyFixed,
		})
		if end == n {
			break
		}
	}
	return chunks
}

// chunkSemantic accumulates whole elements until adding the next one would
// push the chunk past the soft target, then flushes at the element boundary.
// Tables always stand alone, and an oversized element becomes its own chunk
// rather than being split mid-element. Headings flush the running chunk so
// they open the section they title.
func (c *Chunker) chunkSemantic(pages []*domain.Page, target int) []domain.Chunk {
	var chunks []domain.Chunk
	var parts []string
	var pageSet []int
	length := 0

	flush := func() {
		if len(parts) == 0 {
			return
		}
		body := strings.Join(parts, "\n\n")
		chunks = append(chunks, domain.Chunk{
			Index:      len(chunks),
			Text:       body,
			TokenCount: domain.CountTokens(body),
			Pages:      pageSet,
			Strategy:   domain.StrategySemantic,
		})
		parts = nil
		pageSet = nil
		length = 0
	}

	add := func(text string, page int) {
		if len(parts) > 0 {
			length += len(pageJoiner)
		}
		parts = append(parts, text)
		length += len([]rune(text))
		if len(pageSet) == 0 || pageSet[len(pageSet)-1] != page {
			pageSet = append(pageSet, page)
		}
	}

	for _, p := range pages {
		for _, el := range p.Elements {
			text := el.TableText()
			if text == "" {
				continue
			}
			if el.Kind == domain.ElementTable {
				flush()
				add(text, p.Number)
				flush()
				continue
			}
			if el.Kind == domain.ElementHeading {
				flush()
			}
			if length > 0 && length+len([]rune(text)) > target {
				flush()
			}
			add(text, p.Number)
		}
	}
	flush()
	return chunks
}

// pageBound is the half-open rune range a page occupies in the joined text.
type pageBound struct {
	number     int
	start, end int
}

func joinPages(pages []*domain.Page) (string, []pageBound) {
	var sb strings.Builder
	bounds := make([]pageBound, 0, len(pages))
	offset := 0
	for i, p := range pages {
		if i > 0 {
			sb.WriteString(pageJoiner)
			offset += len([]rune(pageJoiner))
		}
		runeLen := len([]rune(p.Text))
		bounds = append(bounds, pageBound{number: p.Number, start: offset, end: offset + runeLen})
		sb.WriteString(p.Text)
		offset += runeLen
	}
	return sb.String(), bounds
}

// pagesInRange returns the numbers of pages overlapping the rune range
// [start, end), in ascending order.
func pagesInRange(bounds []pageBound, start, end int) []int {
	var out []int
	for _, b := range bounds {
		if b.start < end && start < b.end {
			out = append(out, b.number)
		}
	}
	return out
}
