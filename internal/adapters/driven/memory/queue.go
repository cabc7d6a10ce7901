package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

const defaultQueueCapacity = 1024

// Queue is a channel-backed TaskQueue. Delivery is at-most-once across a
// process crash - acceptable for the single-instance deployments this
// adapter targets; multi-instance setups use the Redis queue.
type Queue struct {
	jobs chan string

	mu       sync.Mutex
	inflight map[string]struct{}
	closed   bool
}

// NewQueue creates a new in-memory queue. capacity <= 0 selects the default.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	return &Queue{
		jobs:     make(chan string, capacity),
		inflight: make(map[string]struct{}),
	}
}

// Enqueue adds a job ID to the queue.
func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	if jobID == "" {
		return errors.New("job id is required")
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.New("queue is closed")
	}
	q.mu.Unlock()

	select {
	case q.jobs <- jobID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.New("queue is full")
	}
}

// DequeueWithTimeout waits up to timeoutSec seconds for a job ID. Returns ""
// when nothing arrived in time.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeoutSec int) (string, error) {
	timer := time.NewTimer(time.Duration(timeoutSec) * time.Second)
	defer timer.Stop()

	select {
	case jobID, ok := <-q.jobs:
		if !ok {
			return "", nil
		}
		q.mu.Lock()
		q.inflight[jobID] = struct{}{}
		q.mu.Unlock()
		return jobID, nil
	case <-timer.C:
		return "", nil
	case <-ctx.Done():
		return "", nil
	}
}

// Ack confirms a dequeued job was processed.
func (q *Queue) Ack(ctx context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inflight, jobID)
	return nil
}

// Nack returns a failed job to the queue for another attempt.
func (q *Queue) Nack(ctx context.Context, jobID string, reason string) error {
	q.mu.Lock()
	delete(q.inflight, jobID)
	q.mu.Unlock()

	select {
	case q.jobs <- jobID:
		return nil
	default:
		return errors.New("queue is full")
	}
}

// Ping reports queue health; an in-process queue is always reachable.
func (q *Queue) Ping(ctx context.Context) error {
	return nil
}

// Close stops accepting new jobs and wakes blocked consumers.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
}
