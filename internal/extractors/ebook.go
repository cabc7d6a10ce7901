package extractors

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// EbookExtractor parses EPUB archives. Spine order from the OPF package
// document drives page order; each spine document becomes one page, parsed
// through the markup extractor.
type EbookExtractor struct {
	markup *MarkupExtractor
}

// NewEbookExtractor creates a new EbookExtractor
func NewEbookExtractor(markup *MarkupExtractor) *EbookExtractor {
	return &EbookExtractor{markup: markup}
}

func (e *EbookExtractor) Extract(ctx context.Context, req driven.ExtractionRequest) (*domain.RawDocument, error) {
	r, err := zip.NewReader(bytes.NewReader(req.Data), int64(len(req.Data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open epub: %v", domain.ErrExtractionFailed, err)
	}

	entries := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		entries[f.Name] = f
	}

	docPaths := spineDocuments(entries)
	if len(docPaths) == 0 {
		return nil, fmt.Errorf("%w: no content documents in epub", domain.ErrExtractionFailed)
	}

	doc := &domain.RawDocument{
		PageCount: len(docPaths),
		Method:    "epub",
	}
	page := 0
	for _, name := range docPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, ok := entries[name]
		if !ok {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("spine document %s missing from archive", name))
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		page++
		sub, err := e.markup.Extract(ctx, driven.ExtractionRequest{
			Filename: name,
			Data:     content,
			Options:  req.Options,
		})
		if err != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		for _, el := range sub.Elements {
			el.Page = page
			doc.Elements = append(doc.Elements, el)
		}
	}
	doc.PageCount = page
	return doc, nil
}

func (e *EbookExtractor) SupportsOCR() bool    { return false }
func (e *EbookExtractor) SupportsTables() bool { return true }

// spineDocuments resolves the reading-order content documents. The OPF
// package location comes from META-INF/container.xml; when either is
// missing or malformed, the HTML entries in archive path order serve as a
// fallback.
func spineDocuments(entries map[string]*zip.File) []string {
	if opfPath := containerOPFPath(entries); opfPath != "" {
		if docs := opfSpine(entries, opfPath); len(docs) > 0 {
			return docs
		}
	}

	var docs []string
	for name := range entries {
		switch strings.ToLower(path.Ext(name)) {
		case ".xhtml", ".html", ".htm":
			docs = append(docs, name)
		}
	}
	sort.Strings(docs)
	return docs
}

func containerOPFPath(entries map[string]*zip.File) string {
	f, ok := entries["META-INF/container.xml"]
	if !ok {
		return ""
	}
	data, err := readZipFile(f)
	if err != nil {
		return ""
	}
	var container struct {
		Rootfiles []struct {
			FullPath string `xml:"full-path,attr"`
		} `xml:"rootfiles>rootfile"`
	}
	if err := xml.Unmarshal(data, &container); err != nil || len(container.Rootfiles) == 0 {
		return ""
	}
	return container.Rootfiles[0].FullPath
}

func opfSpine(entries map[string]*zip.File, opfPath string) []string {
	f, ok := entries[opfPath]
	if !ok {
		return nil
	}
	data, err := readZipFile(f)
	if err != nil {
		return nil
	}
	var pkg struct {
		Manifest []struct {
			ID   string `xml:"id,attr"`
			Href string `xml:"href,attr"`
		} `xml:"manifest>item"`
		Spine []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"spine>itemref"`
	}
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil
	}
	hrefs := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		hrefs[item.ID] = item.Href
	}
	base := path.Dir(opfPath)
	var docs []string
	for _, ref := range pkg.Spine {
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		if base != "." {
			href = path.Join(base, href)
		}
		docs = append(docs, href)
	}
	return docs
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
