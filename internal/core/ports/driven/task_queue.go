package driven

import "context"

// TaskQueue hands async conversion jobs to the worker pool. Payloads are job
// IDs; the full job lives in the JobStore.
type TaskQueue interface {
	Enqueue(ctx context.Context, jobID string) error

	// DequeueWithTimeout blocks up to timeoutSec seconds for a job ID.
	// Returns "" with nil error when nothing arrived in time.
	DequeueWithTimeout(ctx context.Context, timeoutSec int) (string, error)

	// Ack confirms a dequeued job was processed; Nack returns it for retry
	// accounting by the backend.
	Ack(ctx context.Context, jobID string) error
	Nack(ctx context.Context, jobID string, reason string) error

	Ping(ctx context.Context) error
}
