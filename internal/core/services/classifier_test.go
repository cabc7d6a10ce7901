package services

import (
	"errors"
	"testing"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

func TestClassifyByMIME(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name     string
		filename string
		mime     string
		want     domain.DocumentKind
	}{
		{"pdf", "report.bin", "application/pdf", domain.KindPDF},
		{"docx", "file", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", domain.KindDocx},
		{"xlsx", "file", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", domain.KindXlsx},
		{"odf", "file", "application/vnd.oasis.opendocument.text", domain.KindODF},
		{"html with charset", "page", "text/html; charset=utf-8", domain.KindMarkup},
		{"mime case insensitive", "file", "Application/PDF", domain.KindPDF},
		{"email", "message", "message/rfc822", domain.KindEmail},
		{"audio", "rec", "audio/mpeg", domain.KindAudio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify(tt.filename, tt.mime, nil)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyByExtension(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		filename string
		want     domain.DocumentKind
	}{
		{"report.pdf", domain.KindPDF},
		{"Letter.DOCX", domain.KindDocx},
		{"sheet.xlsm", domain.KindXlsx},
		{"deck.pptx", domain.KindPptx},
		{"old.doc", domain.KindLegacyOffice},
		{"notes.md", domain.KindMarkup},
		{"data.jsonl", domain.KindData},
		{"legacy.dbf", domain.KindData},
		{"scan.tiff", domain.KindImage},
		{"mail.eml", domain.KindEmail},
		{"book.epub", domain.KindEbook},
		{"call.m4a", domain.KindAudio},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := c.Classify(tt.filename, "", nil)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestClassifyExtensionBeatsAmbiguousMIME(t *testing.T) {
	c := NewClassifier()

	// Clients routinely send the legacy ms-* types for modern OOXML files;
	// the extension is the better signal there.
	got, err := c.Classify("report.docx", "application/msword", nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != domain.KindDocx {
		t.Errorf("Classify() = %v, want %v", got, domain.KindDocx)
	}

	// With no extension the ambiguous type still resolves.
	got, err = c.Classify("attachment", "application/msword", nil)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != domain.KindLegacyOffice {
		t.Errorf("Classify() = %v, want %v", got, domain.KindLegacyOffice)
	}
}

func TestClassifyByMagicBytes(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		data []byte
		want domain.DocumentKind
	}{
		{"pdf header", []byte("%PDF-1.7\n..."), domain.KindPDF},
		{"png header", []byte("\x89PNG\r\n\x1a\n...."), domain.KindImage},
		{"jpeg header", []byte("\xff\xd8\xff\xe0...."), domain.KindImage},
		{"gif header", []byte("GIF89a...."), domain.KindImage},
		{"rtf header", []byte("{\\rtf1\\ansi"), domain.KindLegacyOffice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Classify("upload", "application/octet-stream", tt.data)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyUnsupported(t *testing.T) {
	c := NewClassifier()

	_, err := c.Classify("binary.xyz", "application/octet-stream", []byte{0x00, 0x01, 0x02})
	if !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Errorf("Classify() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestSupportedExtensions(t *testing.T) {
	c := NewClassifier()

	exts := c.SupportedExtensions()
	if len(exts[domain.KindMarkup]) == 0 {
		t.Error("expected markup extensions")
	}
	for kind, list := range exts {
		for i := 1; i < len(list); i++ {
			if list[i] < list[i-1] {
				t.Errorf("extensions for %s not sorted: %v", kind, list)
			}
		}
	}
}
