package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driving"
)

// multipartMemoryLimit is how much of an upload ParseMultipartForm keeps in
// memory before spilling to disk.
const multipartMemoryLimit = 32 << 20

// defaultChunkPageSize caps one page of the chunk listing.
const defaultChunkPageSize = 100

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	ready := true

	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			checks["database"] = "down"
			ready = false
		} else {
			checks["database"] = "ok"
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			checks["redis"] = "down"
			ready = false
		} else {
			checks["redis"] = "ok"
		}
	}

	if !ready {
		writeError(w, http.StatusServiceUnavailable, domain.CodeProcessingError, "dependencies unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ready", "checks": checks})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":      s.version,
		"capabilities": s.engines.Capabilities(),
	})
}

// Conversion endpoints

// asyncSubmitResponse is the 202 body for an accepted async conversion.
type asyncSubmitResponse struct {
	JobID       string    `json:"job_id"`
	State       string    `json:"state"`
	StatusURL   string    `json:"status_url"`
	SubmittedAt time.Time `json:"submitted_at"`
}

func (s *Server) handleConvertAsync(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseConvertRequest(w, r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	job, decision, err := s.convertService.ConvertAsync(r.Context(), req)
	setRateLimitHeaders(w, decision)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, asyncSubmitResponse{
		JobID:       job.ID,
		State:       string(job.State),
		StatusURL:   fmt.Sprintf("/api/v1/convert/%s/status", job.ID),
		SubmittedAt: job.SubmittedAt,
	})
}

func (s *Server) handleConvertSync(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseConvertRequest(w, r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	job, decision, err := s.convertService.ConvertSync(r.Context(), req)
	setRateLimitHeaders(w, decision)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// The job is terminal here. A failed conversion is still a handled
	// request; surface the recorded failure with the right status.
	if job.State == domain.JobFailed {
		writeError(w, statusForCode(job.ErrorCode), job.ErrorCode, job.ErrorMessage)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// jobStatusResponse is the polling view of a job - no payload, no output.
type jobStatusResponse struct {
	ID           string     `json:"id"`
	State        string     `json:"state"`
	Kind         string     `json:"detected_kind,omitempty"`
	ErrorCode    string     `json:"error_code,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := s.loadOwnedJob(w, r)
	if err != nil {
		return
	}

	writeJSON(w, http.StatusOK, jobStatusResponse{
		ID:           job.ID,
		State:        string(job.State),
		Kind:         string(job.Kind),
		ErrorCode:    job.ErrorCode,
		ErrorMessage: job.ErrorMessage,
		SubmittedAt:  job.SubmittedAt,
		CompletedAt:  job.CompletedAt,
	})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	job, err := s.loadOwnedJob(w, r)
	if err != nil {
		return
	}
	if !job.State.Terminal() {
		writeError(w, http.StatusConflict, "JOB_NOT_TERMINAL", "conversion still in progress")
		return
	}
	if job.State == domain.JobFailed {
		writeError(w, statusForCode(job.ErrorCode), job.ErrorCode, job.ErrorMessage)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// chunkListResponse pages through a completed job's chunks.
type chunkListResponse struct {
	JobID  string         `json:"job_id"`
	Chunks []domain.Chunk `json:"chunks"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func (s *Server) handleGetDocumentChunks(w http.ResponseWriter, r *http.Request) {
	job, err := s.loadOwnedJob(w, r)
	if err != nil {
		return
	}
	if !job.State.Terminal() {
		writeError(w, http.StatusConflict, "JOB_NOT_TERMINAL", "conversion still in progress")
		return
	}
	if job.State == domain.JobFailed {
		writeError(w, statusForCode(job.ErrorCode), job.ErrorCode, job.ErrorMessage)
		return
	}

	limit := queryInt(r, "limit", defaultChunkPageSize)
	offset := queryInt(r, "offset", 0)
	if limit <= 0 || offset < 0 {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidConfiguration, "limit must be positive and offset non-negative")
		return
	}

	total := len(job.Chunks)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, chunkListResponse{
		JobID:  job.ID,
		Chunks: job.Chunks[offset:end],
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	extensions := map[string][]string{}
	for kind, exts := range s.classifier.SupportedExtensions() {
		extensions[string(kind)] = exts
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"formats":      extensions,
		"capabilities": s.engines.Capabilities(),
	})
}

// Helpers

// parseConvertRequest reads the multipart upload and conversion options. The
// body is capped before parsing so oversized uploads fail fast.
func (s *Server) parseConvertRequest(w http.ResponseWriter, r *http.Request) (driving.ConvertRequest, error) {
	var req driving.ConvertRequest

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return req, fmt.Errorf("%w: upload exceeds %d bytes", domain.ErrFileTooLarge, s.maxUploadBytes)
		}
		return req, fmt.Errorf("%w: malformed multipart body", domain.ErrInvalidInput)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return req, fmt.Errorf("%w: file field is required", domain.ErrInvalidInput)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return req, fmt.Errorf("read upload: %w", err)
	}

	opts, err := parseOptions(r)
	if err != nil {
		return req, err
	}

	return driving.ConvertRequest{
		Filename:     header.Filename,
		DeclaredMIME: header.Header.Get("Content-Type"),
		Data:         data,
		Options:      opts,
		Key:          GetAPIKey(r.Context()),
	}, nil
}

// parseOptions overlays form fields on the documented defaults.
func parseOptions(r *http.Request) (domain.ConvertOptions, error) {
	opts := domain.DefaultConvertOptions()

	if v := r.FormValue("chunk_strategy"); v != "" {
		opts.ChunkStrategy = domain.ChunkStrategy(v)
	}
	if v := r.FormValue("chunk_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("%w: chunk_size must be an integer", domain.ErrInvalidConfiguration)
		}
		opts.ChunkSize = n
	}
	if v := r.FormValue("chunk_overlap"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("%w: chunk_overlap must be an integer", domain.ErrInvalidConfiguration)
		}
		opts.ChunkOverlap = n
	}

	var err error
	if opts.ExtractTables, err = formBool(r, "extract_tables", opts.ExtractTables); err != nil {
		return opts, err
	}
	if opts.OCREnabled, err = formBool(r, "ocr_enabled", opts.OCREnabled); err != nil {
		return opts, err
	}
	if opts.IncludeRawText, err = formBool(r, "include_raw_text", opts.IncludeRawText); err != nil {
		return opts, err
	}
	return opts, nil
}

func formBool(r *http.Request, field string, def bool) (bool, error) {
	v := r.FormValue(field)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%w: %s must be a boolean", domain.ErrInvalidConfiguration, field)
	}
	return b, nil
}

// loadOwnedJob fetches the {id} job and verifies it belongs to the caller's
// key. Foreign jobs read as not found so IDs can't be probed. Writes the
// error response itself; a non-nil error means the handler should return.
func (s *Server) loadOwnedJob(w http.ResponseWriter, r *http.Request) (*domain.ConversionJob, error) {
	id := r.PathValue("id")
	job, err := s.convertService.GetJob(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return nil, err
	}

	if key := GetAPIKey(r.Context()); key != nil && job.APIKeyID != "" && job.APIKeyID != key.ID {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

// statusForCode maps a recorded job error code back to an HTTP status, for
// failures that were persisted rather than returned as live errors.
func statusForCode(code string) int {
	switch code {
	case domain.CodeInvalidConfiguration:
		return http.StatusBadRequest
	case domain.CodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case domain.CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case domain.CodeExtractionFailed, domain.CodeExtractorUnavailable:
		return http.StatusUnprocessableEntity
	case domain.CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case domain.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
