package extractors

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// EmailExtractor parses RFC 822 messages: headers become a table, the
// text/plain body (or text/html, markdown-stripped) becomes paragraphs.
type EmailExtractor struct {
	markup *MarkupExtractor
}

// NewEmailExtractor creates a new EmailExtractor
func NewEmailExtractor(markup *MarkupExtractor) *EmailExtractor {
	return &EmailExtractor{markup: markup}
}

var headerFields = []string{"From", "To", "Cc", "Date", "Subject"}

func (e *EmailExtractor) Extract(ctx context.Context, req driven.ExtractionRequest) (*domain.RawDocument, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(req.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: parse message: %v", domain.ErrExtractionFailed, err)
	}

	var headerRows [][]string
	for _, field := range headerFields {
		if v := msg.Header.Get(field); v != "" {
			headerRows = append(headerRows, []string{field, v})
		}
	}

	doc := &domain.RawDocument{
		PageCount: 1,
		Method:    "email",
	}
	if subject := msg.Header.Get("Subject"); subject != "" {
		doc.Elements = append(doc.Elements, domain.Element{Kind: domain.ElementHeading, Level: 1, Text: subject})
	}
	if len(headerRows) > 0 {
		doc.Elements = append(doc.Elements, domain.Element{Kind: domain.ElementTable, Table: headerRows})
	}

	body, isHTML, err := e.readBody(msg)
	if err != nil {
		doc.Warnings = append(doc.Warnings, err.Error())
		return doc, nil
	}
	if isHTML {
		sub, err := e.markup.Extract(ctx, driven.ExtractionRequest{
			Filename: "body.html",
			Data:     []byte(body),
			Options:  req.Options,
		})
		if err == nil {
			doc.Elements = append(doc.Elements, sub.Elements...)
			return doc, nil
		}
		doc.Warnings = append(doc.Warnings, fmt.Sprintf("html body: %v", err))
	}
	for _, para := range splitParagraphs(body) {
		doc.Elements = append(doc.Elements, domain.Element{Kind: domain.ElementParagraph, Text: para})
	}
	return doc, nil
}

func (e *EmailExtractor) SupportsOCR() bool    { return false }
func (e *EmailExtractor) SupportsTables() bool { return true }

// readBody returns the best text body of the message, preferring text/plain
// over text/html across multipart alternatives.
func (e *EmailExtractor) readBody(msg *mail.Message) (string, bool, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return readMultipartBody(msg.Body, params["boundary"])
	}

	data, err := decodeTransferEncoding(msg.Body, msg.Header.Get("Content-Transfer-Encoding"))
	if err != nil {
		return "", false, fmt.Errorf("read body: %v", err)
	}
	return string(data), mediaType == "text/html", nil
}

func readMultipartBody(r io.Reader, boundary string) (string, bool, error) {
	if boundary == "" {
		return "", false, fmt.Errorf("multipart message without boundary")
	}
	mr := multipart.NewReader(r, boundary)
	var htmlBody string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		mediaType, params, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if strings.HasPrefix(mediaType, "multipart/") {
			if body, isHTML, err := readMultipartBody(part, params["boundary"]); err == nil {
				if !isHTML {
					return body, false, nil
				}
				if htmlBody == "" {
					htmlBody = body
				}
			}
			continue
		}
		data, err := decodeTransferEncoding(part, part.Header.Get("Content-Transfer-Encoding"))
		if err != nil {
			continue
		}
		switch mediaType {
		case "text/plain", "":
			return string(data), false, nil
		case "text/html":
			if htmlBody == "" {
				htmlBody = string(data)
			}
		}
	}
	if htmlBody != "" {
		return htmlBody, true, nil
	}
	return "", false, fmt.Errorf("no text body found")
}

func decodeTransferEncoding(r io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	}
	return io.ReadAll(r)
}
