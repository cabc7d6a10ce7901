package services

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

// Classifier resolves a request's document kind from its declared MIME type,
// filename extension, and leading bytes. Classification happens once per
// request; downstream stages never re-sniff.
type Classifier struct{}

// NewClassifier creates a new Classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// unambiguousMIME maps MIME types that fully determine the kind. Types that
// browsers and clients routinely misreport (octet-stream, the legacy ms-*
// family on modern files) are deliberately absent.
var unambiguousMIME = map[string]domain.DocumentKind{
	"application/pdf": domain.KindPDF,

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   domain.KindDocx,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         domain.KindXlsx,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": domain.KindPptx,

	"application/vnd.oasis.opendocument.text":         domain.KindODF,
	"application/vnd.oasis.opendocument.spreadsheet":  domain.KindODF,
	"application/vnd.oasis.opendocument.presentation": domain.KindODF,

	"application/rtf": domain.KindLegacyOffice,
	"text/rtf":        domain.KindLegacyOffice,

	"text/markdown":         domain.KindMarkup,
	"text/plain":            domain.KindMarkup,
	"text/html":             domain.KindMarkup,
	"application/xhtml+xml": domain.KindMarkup,

	"text/csv":                  domain.KindData,
	"text/tab-separated-values": domain.KindData,
	"application/json":          domain.KindData,
	"application/x-ndjson":      domain.KindData,
	"application/xml":           domain.KindData,
	"text/xml":                  domain.KindData,
	"application/x-yaml":        domain.KindData,
	"application/yaml":          domain.KindData,
	"application/toml":          domain.KindData,

	"image/png":  domain.KindImage,
	"image/jpeg": domain.KindImage,
	"image/tiff": domain.KindImage,
	"image/bmp":  domain.KindImage,
	"image/gif":  domain.KindImage,
	"image/webp": domain.KindImage,

	"message/rfc822": domain.KindEmail,

	"application/epub+zip": domain.KindEbook,

	"audio/mpeg":   domain.KindAudio,
	"audio/mp3":    domain.KindAudio,
	"audio/wav":    domain.KindAudio,
	"audio/x-wav":  domain.KindAudio,
	"audio/flac":   domain.KindAudio,
	"audio/x-flac": domain.KindAudio,
	"audio/ogg":    domain.KindAudio,
	"audio/mp4":    domain.KindAudio,
	"audio/aac":    domain.KindAudio,
}

// ambiguousMIME covers types used only when the extension gave no answer.
// The legacy ms-* family is here because clients attach it to modern
// OOXML files as often as to the formats it actually names.
var ambiguousMIME = map[string]domain.DocumentKind{
	"application/msword":            domain.KindLegacyOffice,
	"application/vnd.ms-excel":      domain.KindLegacyOffice,
	"application/vnd.ms-powerpoint": domain.KindLegacyOffice,
}

var extensionKinds = map[string]domain.DocumentKind{
	".pdf": domain.KindPDF,

	".docx": domain.KindDocx,
	".xlsx": domain.KindXlsx,
	".xlsm": domain.KindXlsx,
	".pptx": domain.KindPptx,

	".doc": domain.KindLegacyOffice,
	".xls": domain.KindLegacyOffice,
	".ppt": domain.KindLegacyOffice,
	".rtf": domain.KindLegacyOffice,

	".odt": domain.KindODF,
	".ods": domain.KindODF,
	".odp": domain.KindODF,

	".md":       domain.KindMarkup,
	".markdown": domain.KindMarkup,
	".txt":      domain.KindMarkup,
	".text":     domain.KindMarkup,
	".log":      domain.KindMarkup,
	".rst":      domain.KindMarkup,
	".org":      domain.KindMarkup,
	".adoc":     domain.KindMarkup,
	".tex":      domain.KindMarkup,
	".html":     domain.KindMarkup,
	".htm":      domain.KindMarkup,
	".xhtml":    domain.KindMarkup,

	".csv":    domain.KindData,
	".tsv":    domain.KindData,
	".json":   domain.KindData,
	".jsonl":  domain.KindData,
	".ndjson": domain.KindData,
	".xml":    domain.KindData,
	".yaml":   domain.KindData,
	".yml":    domain.KindData,
	".toml":   domain.KindData,
	".ini":    domain.KindData,
	".dbf":    domain.KindData,

	".png":  domain.KindImage,
	".jpg":  domain.KindImage,
	".jpeg": domain.KindImage,
	".tif":  domain.KindImage,
	".tiff": domain.KindImage,
	".bmp":  domain.KindImage,
	".gif":  domain.KindImage,
	".webp": domain.KindImage,

	".eml": domain.KindEmail,
	".msg": domain.KindEmail,

	".epub": domain.KindEbook,

	".mp3":  domain.KindAudio,
	".wav":  domain.KindAudio,
	".m4a":  domain.KindAudio,
	".flac": domain.KindAudio,
	".ogg":  domain.KindAudio,
	".aac":  domain.KindAudio,
}

// Classify resolves the document kind for one request. Resolution order:
// unambiguous declared MIME, then filename extension, then ambiguous MIME,
// then leading magic bytes. Anything left is unsupported.
func (c *Classifier) Classify(filename, declaredMIME string, data []byte) (domain.DocumentKind, error) {
	mimeType := normalizeMIME(declaredMIME)
	if kind, ok := unambiguousMIME[mimeType]; ok {
		return kind, nil
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if kind, ok := extensionKinds[ext]; ok {
		return kind, nil
	}

	if kind, ok := ambiguousMIME[mimeType]; ok {
		return kind, nil
	}

	if kind, ok := sniffMagic(data); ok {
		return kind, nil
	}

	return "", fmt.Errorf("%w: cannot classify %q (mime %q)", domain.ErrUnsupportedFormat, filename, declaredMIME)
}

// SupportedExtensions lists every recognized filename extension, for the
// formats listing endpoint.
func (c *Classifier) SupportedExtensions() map[domain.DocumentKind][]string {
	out := make(map[domain.DocumentKind][]string)
	for ext, kind := range extensionKinds {
		out[kind] = append(out[kind], ext)
	}
	for _, exts := range out {
		sort.Strings(exts)
	}
	return out
}

// normalizeMIME lowercases the type and strips parameters like charset.
func normalizeMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}

// sniffMagic recognizes formats with stable leading signatures. Zip archives
// are not sniffed: PK could be docx, xlsx, pptx, odf, or epub, and the
// extension already failed to disambiguate.
func sniffMagic(data []byte) (domain.DocumentKind, bool) {
	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return domain.KindPDF, true
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return domain.KindImage, true
	case bytes.HasPrefix(data, []byte("\xff\xd8\xff")):
		return domain.KindImage, true
	case bytes.HasPrefix(data, []byte("GIF87a")) || bytes.HasPrefix(data, []byte("GIF89a")):
		return domain.KindImage, true
	case bytes.HasPrefix(data, []byte("{\\rtf")):
		return domain.KindLegacyOffice, true
	}
	return "", false
}
