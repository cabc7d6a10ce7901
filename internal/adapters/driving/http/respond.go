package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

// envelope is the JSON shape every response uses.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

// apiError carries a stable machine-readable code alongside the message.
type apiError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &apiError{Code: code, Message: message}})
}

// writeDomainError maps a pipeline error to its HTTP status and stable code.
// Rate-limit rejections additionally carry Retry-After and quota headers.
func writeDomainError(w http.ResponseWriter, err error) {
	var rle *domain.RateLimitError
	if errors.As(err, &rle) {
		setRateLimitHeaders(w, rle.Decision)
		w.Header().Set("Retry-After", strconv.Itoa(rle.Decision.RetryAfter))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(envelope{Error: &apiError{
			Code:       domain.CodeRateLimitExceeded,
			Message:    "rate limit exceeded",
			RetryAfter: rle.Decision.RetryAfter,
		}})
		return
	}

	// Not-found and auth failures sit outside the pipeline's code taxonomy.
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	default:
		writeError(w, statusForError(err), domain.ErrorCode(err), err.Error())
	}
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidConfiguration), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrExtractionFailed), errors.Is(err, domain.ErrExtractorUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// setRateLimitHeaders exposes quota telemetry on every authenticated response.
func setRateLimitHeaders(w http.ResponseWriter, d *domain.RateDecision) {
	if d == nil {
		return
	}
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.MinuteLimit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.MinuteRemaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.MinuteReset.Unix(), 10))
	h.Set("X-RateLimit-Limit-Day", strconv.Itoa(d.DayLimit))
	h.Set("X-RateLimit-Remaining-Day", strconv.Itoa(d.DayRemaining))
	h.Set("X-RateLimit-Reset-Day", strconv.FormatInt(d.DayReset.Unix(), 10))
}
