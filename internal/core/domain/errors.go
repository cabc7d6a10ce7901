package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfiguration indicates out-of-range or contradictory conversion options
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedFormat indicates the classifier could not resolve a document kind
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrFileTooLarge indicates the payload exceeds the size ceiling
	ErrFileTooLarge = errors.New("file too large")

	// ErrExtractionFailed indicates corrupt or malformed input, or an internal extractor error
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrExtractorUnavailable indicates a required extraction capability is not present
	ErrExtractorUnavailable = errors.New("extractor unavailable")

	// ErrRateLimitExceeded indicates admission was denied by the rate limiter
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrTimeout indicates the job exceeded its deadline
	ErrTimeout = errors.New("timeout")

	// ErrUnauthorized indicates a missing, unknown, or inactive API key
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrJobNotTerminal indicates the job has not reached completed or failed yet
	ErrJobNotTerminal = errors.New("job not terminal")
)

// Error codes exposed to API callers. Stable - clients switch on these.
const (
	CodeInvalidConfiguration = "INVALID_CONFIGURATION"
	CodeUnsupportedFormat    = "UNSUPPORTED_FORMAT"
	CodeFileTooLarge         = "FILE_TOO_LARGE"
	CodeExtractionFailed     = "EXTRACTION_FAILED"
	CodeExtractorUnavailable = "EXTRACTOR_UNAVAILABLE"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	CodeTimeout              = "TIMEOUT"
	CodeProcessingError      = "PROCESSING_ERROR"
)

// ErrorCode maps a domain error to its stable API code.
// Unrecognized errors map to PROCESSING_ERROR so internal detail never leaks.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidConfiguration):
		return CodeInvalidConfiguration
	case errors.Is(err, ErrUnsupportedFormat):
		return CodeUnsupportedFormat
	case errors.Is(err, ErrFileTooLarge):
		return CodeFileTooLarge
	case errors.Is(err, ErrExtractionFailed):
		return CodeExtractionFailed
	case errors.Is(err, ErrExtractorUnavailable):
		return CodeExtractorUnavailable
	case errors.Is(err, ErrRateLimitExceeded):
		return CodeRateLimitExceeded
	case errors.Is(err, ErrTimeout):
		return CodeTimeout
	default:
		return CodeProcessingError
	}
}

// RateLimitError carries the admission decision alongside the rejection so the
// HTTP layer can emit Retry-After and quota headers without a second limiter call.
type RateLimitError struct {
	Decision *RateDecision
}

func (e *RateLimitError) Error() string { return ErrRateLimitExceeded.Error() }

// Unwrap makes errors.Is(err, ErrRateLimitExceeded) hold.
func (e *RateLimitError) Unwrap() error { return ErrRateLimitExceeded }
