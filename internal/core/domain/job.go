package domain

import (
	"fmt"
	"time"
)

// JobState is the lifecycle state of a conversion job.
type JobState string

const (
	JobSubmitted   JobState = "submitted"
	JobAdmitted    JobState = "admitted"
	JobClassifying JobState = "classifying"
	JobExtracting  JobState = "extracting"
	JobNormalizing JobState = "normalizing"
	JobChunking    JobState = "chunking"
	JobCompleted   JobState = "completed"
	JobFailed      JobState = "failed"
)

// Terminal reports whether the state is final.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ConvertOptions is the per-request conversion configuration.
type ConvertOptions struct {
	ChunkStrategy  ChunkStrategy `json:"chunk_strategy"`
	ChunkSize      int           `json:"chunk_size"`
	ChunkOverlap   int           `json:"chunk_overlap"`
	ExtractTables  bool          `json:"extract_tables"`
	OCREnabled     bool          `json:"ocr_enabled"`
	IncludeRawText bool          `json:"include_raw_text"`
}

// Option bounds. Values outside these fail validation rather than being clamped.
const (
	MinChunkSize    = 100
	MaxChunkSize    = 10000
	MaxChunkOverlap = 500

	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// DefaultConvertOptions returns the documented defaults.
func DefaultConvertOptions() ConvertOptions {
	return ConvertOptions{
		ChunkStrategy: StrategySemantic,
		ChunkSize:     DefaultChunkSize,
		ChunkOverlap:  DefaultChunkOverlap,
		ExtractTables: true,
		OCREnabled:    true,
	}
}

// Validate checks option ranges. Returns ErrInvalidConfiguration on any violation.
func (o ConvertOptions) Validate() error {
	switch o.ChunkStrategy {
	case StrategyNone, StrategyFixed, StrategySemantic:
	default:
		return fmt.Errorf("%w: unknown chunk_strategy %q", ErrInvalidConfiguration, o.ChunkStrategy)
	}
	if o.ChunkSize < MinChunkSize || o.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: chunk_size %d out of range [%d, %d]", ErrInvalidConfiguration, o.ChunkSize, MinChunkSize, MaxChunkSize)
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap > MaxChunkOverlap {
		return fmt.Errorf("%w: chunk_overlap %d out of range [0, %d]", ErrInvalidConfiguration, o.ChunkOverlap, MaxChunkOverlap)
	}
	if o.ChunkOverlap >= o.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be less than chunk_size %d", ErrInvalidConfiguration, o.ChunkOverlap, o.ChunkSize)
	}
	return nil
}

// ConversionJob represents one conversion request's lifecycle. Mutated only by
// the orchestrator; terminal once completed or failed.
type ConversionJob struct {
	ID       string `json:"id"`
	APIKeyID string `json:"api_key_id,omitempty"`

	// Input metadata
	Filename     string `json:"filename"`
	DeclaredMIME string `json:"declared_mime_type,omitempty"`
	SizeBytes    int64  `json:"file_size_bytes"`
	FileHash     string `json:"file_hash,omitempty"`

	// Data is the uploaded payload, persisted by the job store so async
	// workers can process it. Never serialized into API responses.
	Data []byte `json:"-"`

	Options ConvertOptions `json:"options"`

	State JobState     `json:"state"`
	Kind  DocumentKind `json:"detected_kind,omitempty"`

	// Output, populated on completion
	Pages      []*Page     `json:"pages,omitempty"`
	Chunks     []Chunk     `json:"chunks,omitempty"`
	RawText    string      `json:"raw_text,omitempty"`
	Statistics *Statistics `json:"statistics,omitempty"`

	// Failure detail, populated on failure
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// validTransitions encodes the job state machine. failed is reachable from
// every non-terminal state and is handled separately in Transition.
var validTransitions = map[JobState]JobState{
	JobSubmitted:   JobAdmitted,
	JobAdmitted:    JobClassifying,
	JobClassifying: JobExtracting,
	JobExtracting:  JobNormalizing,
	JobNormalizing: JobChunking,
	JobChunking:    JobCompleted,
}

// Transition advances the job to next, enforcing the state machine.
func (j *ConversionJob) Transition(next JobState) error {
	if j.State.Terminal() {
		return fmt.Errorf("%w: job %s is terminal in state %s", ErrInvalidInput, j.ID, j.State)
	}
	if next == JobFailed {
		j.State = JobFailed
		return nil
	}
	if validTransitions[j.State] != next {
		return fmt.Errorf("%w: illegal transition %s -> %s", ErrInvalidInput, j.State, next)
	}
	j.State = next
	return nil
}

// Fail marks the job failed with a stable error code and message.
func (j *ConversionJob) Fail(err error, at time.Time) {
	j.State = JobFailed
	j.ErrorCode = ErrorCode(err)
	j.ErrorMessage = err.Error()
	j.CompletedAt = &at
}

// Complete records the pipeline output and marks the job completed.
func (j *ConversionJob) Complete(pages []*Page, chunks []Chunk, stats *Statistics, at time.Time) {
	j.State = JobCompleted
	j.Pages = pages
	j.Chunks = chunks
	j.Statistics = stats
	j.CompletedAt = &at
}
