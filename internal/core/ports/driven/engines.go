package driven

import "context"

// The extraction backends below are opaque capabilities reached through the
// extractor registry. Whether one is present is deployment configuration;
// extractors report ErrExtractorUnavailable when a required engine is absent.

// OCREngine recognizes text in a raster image.
type OCREngine interface {
	// Recognize returns the recognized text for one image.
	Recognize(ctx context.Context, image []byte) (string, error)
	Close() error
}

// Transcriber converts an audio payload into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Close() error
}

// DocumentRenderer converts a legacy office payload into a modern format the
// native-text extractors understand (the LibreOffice-style rendering step).
type DocumentRenderer interface {
	// Render returns the converted bytes and the target extension (e.g. ".docx").
	Render(ctx context.Context, data []byte, sourceExt string) ([]byte, string, error)
	Close() error
}
