package driving

import (
	"context"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

// ConvertRequest is one conversion submission after the HTTP layer has
// resolved the API key and read the payload.
type ConvertRequest struct {
	Filename     string
	DeclaredMIME string
	Data         []byte
	Options      domain.ConvertOptions
	Key          *domain.APIKey
}

// ConversionService is the orchestrator's driving port.
type ConversionService interface {
	// ConvertSync runs the full pipeline inline. The returned job is terminal:
	// completed with output, or failed with its error recorded. A non-nil
	// error means the request was rejected before a job was created
	// (configuration, format, size, or admission failures).
	ConvertSync(ctx context.Context, req ConvertRequest) (*domain.ConversionJob, *domain.RateDecision, error)

	// ConvertAsync admits the request, persists the job in submitted state,
	// enqueues it, and returns immediately for later polling.
	ConvertAsync(ctx context.Context, req ConvertRequest) (*domain.ConversionJob, *domain.RateDecision, error)

	// Process runs the pipeline for a previously enqueued job. Called by the
	// worker pool; failures are recorded on the job, not returned.
	Process(ctx context.Context, jobID string) error

	// GetJob returns a job by id for status polling and result retrieval.
	GetJob(ctx context.Context, id string) (*domain.ConversionJob, error)
}
