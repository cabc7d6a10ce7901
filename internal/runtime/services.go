// Package runtime holds the registry of optional extraction engines. OCR,
// transcription, and legacy-office rendering are deployment capabilities that
// can be attached, swapped, or detached while the process runs.
package runtime

import (
	"sync"

	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
	"github.com/fileforge/fileforge-core/internal/extractors"
)

// Services holds references to the optional extraction engines.
// Thread-safe for concurrent access; any engine may be nil.
type Services struct {
	mu sync.RWMutex

	ocr         driven.OCREngine
	transcriber driven.Transcriber
	renderer    driven.DocumentRenderer
}

// Capabilities reports which optional engines are currently attached.
type Capabilities struct {
	OCR           bool `json:"ocr"`
	Transcription bool `json:"transcription"`
	LegacyOffice  bool `json:"legacy_office"`
}

// NewServices creates a new Services registry with no engines attached.
func NewServices() *Services {
	return &Services{}
}

// OCR returns the current OCR engine (may be nil)
func (s *Services) OCR() driven.OCREngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ocr
}

// Transcriber returns the current transcriber (may be nil)
func (s *Services) Transcriber() driven.Transcriber {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcriber
}

// Renderer returns the current document renderer (may be nil)
func (s *Services) Renderer() driven.DocumentRenderer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.renderer
}

// SetOCR updates the OCR engine, closing the old one if present.
func (s *Services) SetOCR(engine driven.OCREngine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ocr != nil {
		_ = s.ocr.Close()
	}
	s.ocr = engine
}

// SetTranscriber updates the transcriber, closing the old one if present.
func (s *Services) SetTranscriber(engine driven.Transcriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transcriber != nil {
		_ = s.transcriber.Close()
	}
	s.transcriber = engine
}

// SetRenderer updates the document renderer, closing the old one if present.
func (s *Services) SetRenderer(engine driven.DocumentRenderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.renderer != nil {
		_ = s.renderer.Close()
	}
	s.renderer = engine
}

// Engines adapts the registry into the provider functions the extractor set
// consumes. Each call resolves the engine attached at extraction time, so a
// swap takes effect without rebuilding the registry.
func (s *Services) Engines() extractors.Engines {
	return extractors.Engines{
		OCR:         s.OCR,
		Transcriber: s.Transcriber,
		Renderer:    s.Renderer,
	}
}

// Capabilities reports which engines are attached right now.
func (s *Services) Capabilities() Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Capabilities{
		OCR:           s.ocr != nil,
		Transcription: s.transcriber != nil,
		LegacyOffice:  s.renderer != nil,
	}
}

// Close shuts down all attached engines.
func (s *Services) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ocr != nil {
		_ = s.ocr.Close()
		s.ocr = nil
	}
	if s.transcriber != nil {
		_ = s.transcriber.Close()
		s.transcriber = nil
	}
	if s.renderer != nil {
		_ = s.renderer.Close()
		s.renderer = nil
	}
	return nil
}
