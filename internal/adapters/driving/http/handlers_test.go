package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven/mocks"
	"github.com/fileforge/fileforge-core/internal/core/ports/driving"
	"github.com/fileforge/fileforge-core/internal/core/services"
	"github.com/fileforge/fileforge-core/internal/runtime"
)

const testRawKey = "ff-test-key"

// stubConvertService returns canned responses so handler behavior can be
// tested without the real pipeline.
type stubConvertService struct {
	syncJob  *domain.ConversionJob
	asyncJob *domain.ConversionJob
	jobs     map[string]*domain.ConversionJob
	decision *domain.RateDecision
	err      error

	lastRequest driving.ConvertRequest
}

func (s *stubConvertService) ConvertSync(ctx context.Context, req driving.ConvertRequest) (*domain.ConversionJob, *domain.RateDecision, error) {
	s.lastRequest = req
	return s.syncJob, s.decision, s.err
}

func (s *stubConvertService) ConvertAsync(ctx context.Context, req driving.ConvertRequest) (*domain.ConversionJob, *domain.RateDecision, error) {
	s.lastRequest = req
	return s.asyncJob, s.decision, s.err
}

func (s *stubConvertService) Process(ctx context.Context, jobID string) error { return nil }

func (s *stubConvertService) GetJob(ctx context.Context, id string) (*domain.ConversionJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func newTestServer(t *testing.T, stub *stubConvertService) *Server {
	t.Helper()

	keyStore := mocks.NewMockKeyStore()
	keyStore.Add(&domain.APIKey{
		ID:      "key-1",
		KeyHash: domain.HashKey(testRawKey),
		Active:  true,
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(DefaultConfig(), stub, services.NewClassifier(), runtime.NewServices(), keyStore, nil, nil, logger)
}

// multipartBody builds a multipart upload with the given form fields.
func multipartBody(t *testing.T, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestConvertSyncEndpoint(t *testing.T) {
	completed := &domain.ConversionJob{
		ID:       "job-1",
		APIKeyID: "key-1",
		Filename: "notes.md",
		State:    domain.JobCompleted,
		Chunks:   []domain.Chunk{{Index: 0, Text: "hello"}},
	}
	stub := &stubConvertService{
		syncJob: completed,
		decision: &domain.RateDecision{
			Allowed:         true,
			MinuteLimit:     60,
			MinuteRemaining: 59,
			MinuteReset:     time.Now().Add(time.Minute),
			DayLimit:        1000,
			DayRemaining:    999,
			DayReset:        time.Now().Add(24 * time.Hour),
		},
	}
	srv := newTestServer(t, stub)

	body, contentType := multipartBody(t, "notes.md", []byte("# Hello"), map[string]string{
		"chunk_strategy": "fixed",
		"chunk_size":     "500",
	})
	req := httptest.NewRequest("POST", "/api/v1/convert/sync", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-API-Key", testRawKey)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Error("expected success envelope")
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "59" {
		t.Errorf("X-RateLimit-Remaining = %q, want 59", got)
	}
	if got := rec.Header().Get("X-RateLimit-Limit-Day"); got != "1000" {
		t.Errorf("X-RateLimit-Limit-Day = %q, want 1000", got)
	}

	if stub.lastRequest.Filename != "notes.md" {
		t.Errorf("service saw filename %q", stub.lastRequest.Filename)
	}
	if stub.lastRequest.Options.ChunkStrategy != domain.StrategyFixed {
		t.Errorf("chunk strategy = %s, want fixed", stub.lastRequest.Options.ChunkStrategy)
	}
	if stub.lastRequest.Options.ChunkSize != 500 {
		t.Errorf("chunk size = %d, want 500", stub.lastRequest.Options.ChunkSize)
	}
	if stub.lastRequest.Key == nil || stub.lastRequest.Key.ID != "key-1" {
		t.Error("service did not receive the authenticated key")
	}
}

func TestConvertAsyncEndpoint(t *testing.T) {
	stub := &stubConvertService{
		asyncJob: &domain.ConversionJob{
			ID:          "job-9",
			State:       domain.JobAdmitted,
			SubmittedAt: time.Now(),
		},
	}
	srv := newTestServer(t, stub)

	body, contentType := multipartBody(t, "doc.pdf", []byte("%PDF-1.4"), nil)
	req := httptest.NewRequest("POST", "/api/v1/convert", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-API-Key", testRawKey)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data asyncSubmitResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Data.JobID != "job-9" {
		t.Errorf("job id = %q, want job-9", env.Data.JobID)
	}
	if env.Data.StatusURL != "/api/v1/convert/job-9/status" {
		t.Errorf("status url = %q", env.Data.StatusURL)
	}
}

func TestConvertRequiresAPIKey(t *testing.T) {
	srv := newTestServer(t, &stubConvertService{})

	body, contentType := multipartBody(t, "doc.txt", []byte("hi"), nil)
	req := httptest.NewRequest("POST", "/api/v1/convert/sync", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Errorf("error = %+v, want UNAUTHORIZED", env.Error)
	}
}

func TestConvertUnknownAPIKey(t *testing.T) {
	srv := newTestServer(t, &stubConvertService{})

	body, contentType := multipartBody(t, "doc.txt", []byte("hi"), nil)
	req := httptest.NewRequest("POST", "/api/v1/convert/sync", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-API-Key", "not-a-real-key")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestConvertRateLimited(t *testing.T) {
	decision := &domain.RateDecision{
		Allowed:         false,
		RetryAfter:      30,
		MinuteLimit:     60,
		MinuteRemaining: 0,
		MinuteReset:     time.Now().Add(30 * time.Second),
		DayLimit:        1000,
		DayRemaining:    400,
		DayReset:        time.Now().Add(12 * time.Hour),
	}
	stub := &stubConvertService{err: &domain.RateLimitError{Decision: decision}}
	srv := newTestServer(t, stub)

	body, contentType := multipartBody(t, "doc.txt", []byte("hi"), nil)
	req := httptest.NewRequest("POST", "/api/v1/convert/sync", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-API-Key", testRawKey)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Retry-After = %q, want 30", got)
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != domain.CodeRateLimitExceeded {
		t.Errorf("error = %+v, want %s", env.Error, domain.CodeRateLimitExceeded)
	}
	if env.Error != nil && env.Error.RetryAfter != 30 {
		t.Errorf("retry_after = %d, want 30", env.Error.RetryAfter)
	}
}

func TestConvertErrorStatuses(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid options", fmt.Errorf("%w: chunk_size out of range", domain.ErrInvalidConfiguration), http.StatusBadRequest, domain.CodeInvalidConfiguration},
		{"unsupported format", domain.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, domain.CodeUnsupportedFormat},
		{"file too large", domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, domain.CodeFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &stubConvertService{err: tt.err})

			body, contentType := multipartBody(t, "doc.bin", []byte("x"), nil)
			req := httptest.NewRequest("POST", "/api/v1/convert/sync", body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("X-API-Key", testRawKey)

			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			env := decodeEnvelope(t, rec)
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
		})
	}
}

func TestConvertMissingFileField(t *testing.T) {
	srv := newTestServer(t, &stubConvertService{})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("chunk_strategy", "fixed")
	_ = w.Close()

	req := httptest.NewRequest("POST", "/api/v1/convert/sync", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-API-Key", testRawKey)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestConvertRejectsBadOptionValues(t *testing.T) {
	srv := newTestServer(t, &stubConvertService{})

	body, contentType := multipartBody(t, "doc.txt", []byte("hi"), map[string]string{
		"chunk_size": "not-a-number",
	})
	req := httptest.NewRequest("POST", "/api/v1/convert/sync", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-API-Key", testRawKey)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != domain.CodeInvalidConfiguration {
		t.Errorf("error = %+v, want %s", env.Error, domain.CodeInvalidConfiguration)
	}
}

func TestJobStatusEndpoint(t *testing.T) {
	stub := &stubConvertService{jobs: map[string]*domain.ConversionJob{
		"job-1": {
			ID:       "job-1",
			APIKeyID: "key-1",
			State:    domain.JobExtracting,
			Kind:     domain.KindPDF,
		},
	}}
	srv := newTestServer(t, stub)

	req := httptest.NewRequest("GET", "/api/v1/convert/job-1/status", nil)
	req.Header.Set("X-API-Key", testRawKey)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data jobStatusResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Data.State != string(domain.JobExtracting) {
		t.Errorf("state = %q, want extracting", env.Data.State)
	}
	if env.Data.Kind != string(domain.KindPDF) {
		t.Errorf("kind = %q, want pdf", env.Data.Kind)
	}
}

func TestJobStatusUnknownJob(t *testing.T) {
	srv := newTestServer(t, &stubConvertService{jobs: map[string]*domain.ConversionJob{}})

	req := httptest.NewRequest("GET", "/api/v1/convert/missing/status", nil)
	req.Header.Set("X-API-Key", testRawKey)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestJobStatusForeignJobHidden(t *testing.T) {
	stub := &stubConvertService{jobs: map[string]*domain.ConversionJob{
		"job-1": {ID: "job-1", APIKeyID: "someone-else", State: domain.JobCompleted},
	}}
	srv := newTestServer(t, stub)

	req := httptest.NewRequest("GET", "/api/v1/convert/job-1/status", nil)
	req.Header.Set("X-API-Key", testRawKey)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for foreign job", rec.Code)
	}
}

func TestGetDocumentNotTerminal(t *testing.T) {
	stub := &stubConvertService{jobs: map[string]*domain.ConversionJob{
		"job-1": {ID: "job-1", APIKeyID: "key-1", State: domain.JobChunking},
	}}
	srv := newTestServer(t, stub)

	req := httptest.NewRequest("GET", "/api/v1/documents/job-1", nil)
	req.Header.Set("X-API-Key", testRawKey)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestGetDocumentFailedJob(t *testing.T) {
	stub := &stubConvertService{jobs: map[string]*domain.ConversionJob{
		"job-1": {
			ID:           "job-1",
			APIKeyID:     "key-1",
			State:        domain.JobFailed,
			ErrorCode:    domain.CodeExtractionFailed,
			ErrorMessage: "extraction failed: corrupt document",
		},
	}}
	srv := newTestServer(t, stub)

	req := httptest.NewRequest("GET", "/api/v1/documents/job-1", nil)
	req.Header.Set("X-API-Key", testRawKey)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != domain.CodeExtractionFailed {
		t.Errorf("error = %+v, want %s", env.Error, domain.CodeExtractionFailed)
	}
}

func TestGetDocumentChunksPagination(t *testing.T) {
	chunks := make([]domain.Chunk, 25)
	for i := range chunks {
		chunks[i] = domain.Chunk{Index: i, Text: fmt.Sprintf("chunk %d", i)}
	}
	stub := &stubConvertService{jobs: map[string]*domain.ConversionJob{
		"job-1": {ID: "job-1", APIKeyID: "key-1", State: domain.JobCompleted, Chunks: chunks},
	}}
	srv := newTestServer(t, stub)

	req := httptest.NewRequest("GET", "/api/v1/documents/job-1/chunks?limit=10&offset=20", nil)
	req.Header.Set("X-API-Key", testRawKey)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data chunkListResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Data.Total != 25 {
		t.Errorf("total = %d, want 25", env.Data.Total)
	}
	if len(env.Data.Chunks) != 5 {
		t.Errorf("page size = %d, want 5", len(env.Data.Chunks))
	}
	if len(env.Data.Chunks) > 0 && env.Data.Chunks[0].Index != 20 {
		t.Errorf("first chunk index = %d, want 20", env.Data.Chunks[0].Index)
	}
}

func TestFormatsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubConvertService{})

	req := httptest.NewRequest("GET", "/api/v1/formats", nil)
	req.Header.Set("X-API-Key", testRawKey)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var env struct {
		Data struct {
			Formats map[string][]string `json:"formats"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if len(env.Data.Formats[string(domain.KindPDF)]) == 0 {
		t.Error("expected pdf extensions in formats listing")
	}
}

func TestHealthEndpointsNeedNoAuth(t *testing.T) {
	srv := newTestServer(t, &stubConvertService{})

	for _, path := range []string{"/health", "/ready", "/version"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
