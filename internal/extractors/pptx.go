package extractors

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// PptxExtractor parses .pptx files. Each slide becomes one page; the first
// text run on a slide is treated as its title.
type PptxExtractor struct{}

// NewPptxExtractor creates a new PptxExtractor
func NewPptxExtractor() *PptxExtractor {
	return &PptxExtractor{}
}

var slideNameRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func (e *PptxExtractor) Extract(ctx context.Context, req driven.ExtractionRequest) (*domain.RawDocument, error) {
	r, err := zip.NewReader(bytes.NewReader(req.Data), int64(len(req.Data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open zip: %v", domain.ErrExtractionFailed, err)
	}

	// Slide entries are not ordered in the archive; sort by slide number.
	type slideFile struct {
		nr   int
		file *zip.File
	}
	var slides []slideFile
	for _, f := range r.File {
		if m := slideNameRe.FindStringSubmatch(f.Name); m != nil {
			nr, _ := strconv.Atoi(m[1])
			slides = append(slides, slideFile{nr: nr, file: f})
		}
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("%w: no slides found in archive", domain.ErrExtractionFailed)
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].nr < slides[j].nr })

	doc := &domain.RawDocument{
		PageCount: len(slides),
		Method:    "pptx",
	}
	for i, s := range slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := i + 1
		paragraphs, err := slideParagraphs(s.file)
		if err != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("slide %d: %v", s.nr, err))
			continue
		}
		for j, text := range paragraphs {
			el := domain.Element{Kind: domain.ElementParagraph, Text: text, Page: page}
			if j == 0 {
				el.Kind = domain.ElementHeading
				el.Level = 1
			}
			doc.Elements = append(doc.Elements, el)
		}
	}
	return doc, nil
}

func (e *PptxExtractor) SupportsOCR() bool    { return false }
func (e *PptxExtractor) SupportsTables() bool { return false }

// slideParagraphs extracts the text paragraphs of one slide. DrawingML text
// lives in a:t runs grouped under a:p paragraphs.
func slideParagraphs(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var paragraphs []string
	var current strings.Builder
	var inRun bool

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inRun = true
			}
		case xml.CharData:
			if inRun {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inRun = false
			case "p":
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				current.Reset()
			}
		}
	}
	return paragraphs, nil
}
