package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

func fixedOpts(size, overlap int) domain.ConvertOptions {
	opts := domain.DefaultConvertOptions()
	opts.ChunkStrategy = domain.StrategyFixed
	opts.ChunkSize = size
	opts.ChunkOverlap = overlap
	return opts
}

func singlePage(text string) []*domain.Page {
	return []*domain.Page{{
		Number:   1,
		Text:     text,
		Elements: []domain.Element{{Kind: domain.ElementParagraph, Text: text, Page: 1}},
	}}
}

func TestChunkFixedWindows(t *testing.T) {
	c := NewChunker()

	// 2400 runes with size 1000 / overlap 100 must produce exactly the
	// windows [0,1000), [900,1900), [1800,2400).
	text := strings.Repeat("abcdefgh", 300)
	chunks, err := c.Chunk(singlePage(text), fixedOpts(1000, 100))
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	runes := []rune(text)
	wants := [][2]int{{0, 1000}, {900, 1900}, {1800, 2400}}
	for i, w := range wants {
		if got := chunks[i].Text; got != string(runes[w[0]:w[1]]) {
			t.Errorf("chunk %d does not match window [%d,%d)", i, w[0], w[1])
		}
		if chunks[i].Index != i {
			t.Errorf("chunk %d has index %d", i, chunks[i].Index)
		}
	}
}

func TestChunkFixedRoundTrip(t *testing.T) {
	c := NewChunker()

	// Stripping the first overlap runes from every chunk after the first
	// must reconstruct the source text exactly.
	text := strings.Repeat("0123456789", 137) // 1370 runes, not window aligned
	overlap := 50
	chunks, err := c.Chunk(singlePage(text), fixedOpts(300, overlap))
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}

	var sb strings.Builder
	for i, ch := range chunks {
		r := []rune(ch.Text)
		if i == 0 {
			sb.WriteString(ch.Text)
			continue
		}
		sb.WriteString(string(r[overlap:]))
	}
	if sb.String() != text {
		t.Error("round trip failed to reconstruct source text")
	}
}

func TestChunkFixedShortText(t *testing.T) {
	c := NewChunker()

	chunks, err := c.Chunk(singlePage("short"), fixedOpts(1000, 100))
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != "short" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
	if chunks[0].TokenCount != 2 { // ceil(5/4)
		t.Errorf("token count = %d, want 2", chunks[0].TokenCount)
	}
}

func TestChunkFixedPageAttribution(t *testing.T) {
	c := NewChunker()

	pages := []*domain.Page{
		{Number: 1, Text: strings.Repeat("a", 150)},
		{Number: 2, Text: strings.Repeat("b", 150)},
	}
	chunks, err := c.Chunk(pages, fixedOpts(200, 0))
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	// Joined length 302: chunk 0 spans both pages, chunk 1 only page 2.
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if got := chunks[0].Pages; len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("chunk 0 pages = %v, want [1 2]", got)
	}
	if got := chunks[1].Pages; len(got) != 1 || got[0] != 2 {
		t.Errorf("chunk 1 pages = %v, want [2]", got)
	}
}

func TestChunkNonePerPage(t *testing.T) {
	c := NewChunker()

	opts := domain.DefaultConvertOptions()
	opts.ChunkStrategy = domain.StrategyNone

	pages := []*domain.Page{
		{Number: 1, Text: "page one"},
		{Number: 2, Text: ""},
		{Number: 3, Text: "page three"},
	}
	chunks, err := c.Chunk(pages, opts)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2 (empty page skipped)", len(chunks))
	}
	if chunks[1].Text != "page three" || chunks[1].Pages[0] != 3 {
		t.Errorf("chunk 1 = %+v", chunks[1])
	}
}

func TestChunkSemanticFlushesAtElementBoundaries(t *testing.T) {
	c := NewChunker()

	opts := domain.DefaultConvertOptions()
	opts.ChunkStrategy = domain.StrategySemantic
	opts.ChunkSize = 100
	opts.ChunkOverlap = 0

	para := strings.Repeat("w", 60)
	pages := []*domain.Page{{
		Number: 1,
		Elements: []domain.Element{
			{Kind: domain.ElementParagraph, Text: para, Page: 1},
			{Kind: domain.ElementParagraph, Text: para, Page: 1},
			{Kind: domain.ElementParagraph, Text: para, Page: 1},
		},
	}}

	chunks, err := c.Chunk(pages, opts)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	// 60+2+60 > 100, so every paragraph lands in its own chunk.
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Text != para {
			t.Errorf("chunk %d was split mid-element", i)
		}
	}
}

func TestChunkSemanticTableIsolation(t *testing.T) {
	c := NewChunker()

	opts := domain.DefaultConvertOptions()
	opts.ChunkStrategy = domain.StrategySemantic
	opts.ChunkSize = 5000 // everything would fit in one chunk by size

	pages := []*domain.Page{{
		Number: 1,
		Elements: []domain.Element{
			{Kind: domain.ElementParagraph, Text: "before", Page: 1},
			{Kind: domain.ElementTable, Table: [][]string{{"h1", "h2"}, {"v1", "v2"}}, Page: 1},
			{Kind: domain.ElementParagraph, Text: "after", Page: 1},
		},
	}}

	chunks, err := c.Chunk(pages, opts)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3 (table isolated)", len(chunks))
	}
	if chunks[1].Text != "h1 | h2\nv1 | v2" {
		t.Errorf("table chunk = %q", chunks[1].Text)
	}
}

func TestChunkSemanticHeadingStartsChunk(t *testing.T) {
	c := NewChunker()

	opts := domain.DefaultConvertOptions()
	opts.ChunkStrategy = domain.StrategySemantic
	opts.ChunkSize = 5000

	pages := []*domain.Page{{
		Number: 1,
		Elements: []domain.Element{
			{Kind: domain.ElementParagraph, Text: "intro", Page: 1},
			{Kind: domain.ElementHeading, Level: 1, Text: "Section", Page: 1},
			{Kind: domain.ElementParagraph, Text: "section body", Page: 1},
		},
	}}

	chunks, err := c.Chunk(pages, opts)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if !strings.HasPrefix(chunks[1].Text, "Section") {
		t.Errorf("heading does not open its chunk: %q", chunks[1].Text)
	}
}

func TestChunkSemanticOversizedElement(t *testing.T) {
	c := NewChunker()

	opts := domain.DefaultConvertOptions()
	opts.ChunkStrategy = domain.StrategySemantic
	opts.ChunkSize = 100
	opts.ChunkOverlap = 0

	big := strings.Repeat("x", 400)
	chunks, err := c.Chunk(singlePage(big), opts)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != big {
		t.Errorf("oversized element should become one whole chunk, got %d chunks", len(chunks))
	}
}

func TestChunkDeterministic(t *testing.T) {
	c := NewChunker()

	pages := []*domain.Page{
		{Number: 1, Text: strings.Repeat("deterministic ", 50), Elements: []domain.Element{
			{Kind: domain.ElementParagraph, Text: strings.Repeat("deterministic ", 50), Page: 1},
		}},
	}
	opts := fixedOpts(200, 40)

	a, err := c.Chunk(pages, opts)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	b, err := c.Chunk(pages, opts)
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("runs differ in length: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Text != b[i].Text || a[i].TokenCount != b[i].TokenCount {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkInvalidOptions(t *testing.T) {
	c := NewChunker()

	opts := fixedOpts(50, 10) // below MinChunkSize
	_, err := c.Chunk(singlePage("text"), opts)
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("error = %v, want ErrInvalidConfiguration", err)
	}

	opts = fixedOpts(200, 200) // overlap >= size
	_, err = c.Chunk(singlePage("text"), opts)
	if !errors.Is(err, domain.ErrInvalidConfiguration) {
		t.Errorf("error = %v, want ErrInvalidConfiguration", err)
	}
}

func TestChunkEmptyDocument(t *testing.T) {
	c := NewChunker()

	chunks, err := c.Chunk([]*domain.Page{{Number: 1, Text: ""}}, fixedOpts(1000, 100))
	if err != nil {
		t.Fatalf("Chunk() error = %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("empty document should yield no chunks, got %d", len(chunks))
	}
}
