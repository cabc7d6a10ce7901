package mocks

import (
	"context"
	"sync"
)

// MockOCREngine returns a fixed transcript for any image
type MockOCREngine struct {
	mu             sync.Mutex
	RecognizeCalls int
	Text           string
	FailWith       error
}

func NewMockOCREngine(text string) *MockOCREngine {
	return &MockOCREngine{Text: text}
}

func (m *MockOCREngine) Recognize(ctx context.Context, image []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecognizeCalls++
	if m.FailWith != nil {
		return "", m.FailWith
	}
	return m.Text, nil
}

func (m *MockOCREngine) Close() error { return nil }

// MockTranscriber returns a fixed transcript for any audio payload
type MockTranscriber struct {
	mu              sync.Mutex
	TranscribeCalls int
	Text            string
	FailWith        error
}

func NewMockTranscriber(text string) *MockTranscriber {
	return &MockTranscriber{Text: text}
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TranscribeCalls++
	if m.FailWith != nil {
		return "", m.FailWith
	}
	return m.Text, nil
}

func (m *MockTranscriber) Close() error { return nil }

// MockRenderer converts any payload into fixed output bytes
type MockRenderer struct {
	mu          sync.Mutex
	RenderCalls int
	Output      []byte
	TargetExt   string
	FailWith    error
}

func NewMockRenderer(output []byte, targetExt string) *MockRenderer {
	return &MockRenderer{Output: output, TargetExt: targetExt}
}

func (m *MockRenderer) Render(ctx context.Context, data []byte, sourceExt string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RenderCalls++
	if m.FailWith != nil {
		return nil, "", m.FailWith
	}
	return m.Output, m.TargetExt, nil
}

func (m *MockRenderer) Close() error { return nil }
