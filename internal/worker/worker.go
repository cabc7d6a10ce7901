// Package worker runs the bounded pool that drains the conversion queue.
// Each dequeued job ID is handed to the orchestrator's Process; outcomes
// drive ack/nack on the queue backend.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
	"github.com/fileforge/fileforge-core/internal/core/ports/driving"
)

// Worker consumes conversion jobs from the task queue.
type Worker struct {
	taskQueue driven.TaskQueue
	convert   driving.ConversionService
	logger    *slog.Logger

	// Configuration
	concurrency    int
	dequeueTimeout int // seconds

	// Internal state
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config holds configuration for the worker.
type Config struct {
	TaskQueue      driven.TaskQueue
	Convert        driving.ConversionService
	Logger         *slog.Logger
	Concurrency    int // Number of concurrent job processors
	DequeueTimeout int // Seconds to wait for a job before checking again
}

// New creates a new conversion worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	dequeueTimeout := cfg.DequeueTimeout
	if dequeueTimeout <= 0 {
		dequeueTimeout = 5
	}

	return &Worker{
		taskQueue:      cfg.TaskQueue,
		convert:        cfg.Convert,
		logger:         logger,
		concurrency:    concurrency,
		dequeueTimeout: dequeueTimeout,
	}
}

// Start begins the worker loop.
// It runs until Stop is called or context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(ctx, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.mu.Unlock()

	// Wait for in-flight jobs to finish
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	<-w.doneCh
}

// processLoop is the main processing loop for a worker goroutine.
func (w *Worker) processLoop(ctx context.Context, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Info("worker goroutine started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker context cancelled")
			return
		case <-w.stopCh:
			logger.Info("worker stop signal received")
			return
		default:
		}

		jobID, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			logger.Error("failed to dequeue job", "error", err)
			time.Sleep(time.Second) // Back off on error
			continue
		}

		if jobID == "" {
			// Nothing available, poll again
			continue
		}

		w.processJob(ctx, jobID, logger)
	}
}

// processJob runs one conversion. Pipeline failures are recorded on the job
// by the orchestrator and count as handled, so the message is acked; only
// infrastructure errors (store or queue unreachable) nack for redelivery.
func (w *Worker) processJob(ctx context.Context, jobID string, logger *slog.Logger) {
	logger = logger.With("job_id", jobID)
	logger.Info("processing job")

	startTime := time.Now()
	err := w.convert.Process(ctx, jobID)
	duration := time.Since(startTime)

	if err != nil {
		logger.Error("job processing failed",
			"duration", duration,
			"error", err,
		)

		if nackErr := w.taskQueue.Nack(ctx, jobID, err.Error()); nackErr != nil {
			logger.Error("failed to nack job", "nack_error", nackErr)
		}
		return
	}

	logger.Info("job processed", "duration", duration)

	if ackErr := w.taskQueue.Ack(ctx, jobID); ackErr != nil {
		logger.Error("failed to ack job", "ack_error", ackErr)
	}
}

// Health returns health status of the worker.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

// Health returns the health status of the worker.
func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{
		Running: running,
	}

	if err := w.taskQueue.Ping(ctx); err != nil {
		health.QueueHealth = false
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}

	return health
}
