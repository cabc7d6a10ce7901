package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
	"github.com/fileforge/fileforge-core/internal/core/ports/driving"
)

// Ensure conversionService implements ConversionService
var _ driving.ConversionService = (*conversionService)(nil)

// DefaultMaxFileSize caps uploads at 100 MB.
const DefaultMaxFileSize = 100 * 1024 * 1024

// DefaultJobTimeout bounds a single conversion run.
const DefaultJobTimeout = 10 * time.Minute

// conversionService orchestrates the conversion pipeline: prechecks,
// admission, then classify - extract - normalize - chunk.
type conversionService struct {
	jobStore   driven.JobStore
	queue      driven.TaskQueue
	limiter    driven.RateLimiter
	registry   driven.ExtractorRegistry
	classifier *Classifier
	normalizer *Normalizer
	chunker    *Chunker
	logger     *slog.Logger

	maxFileSize int64
	jobTimeout  time.Duration
	now         func() time.Time
}

// Option customizes the conversion service.
type Option func(*conversionService)

// WithMaxFileSize overrides the upload ceiling.
func WithMaxFileSize(n int64) Option {
	return func(s *conversionService) {
		if n > 0 {
			s.maxFileSize = n
		}
	}
}

// WithJobTimeout overrides the per-job processing deadline.
func WithJobTimeout(d time.Duration) Option {
	return func(s *conversionService) {
		if d > 0 {
			s.jobTimeout = d
		}
	}
}

// NewConversionService creates a new ConversionService
func NewConversionService(
	jobStore driven.JobStore,
	queue driven.TaskQueue,
	limiter driven.RateLimiter,
	registry driven.ExtractorRegistry,
	logger *slog.Logger,
	opts ...Option,
) driving.ConversionService {
	s := &conversionService{
		jobStore:    jobStore,
		queue:       queue,
		limiter:     limiter,
		registry:    registry,
		classifier:  NewClassifier(),
		normalizer:  NewNormalizer(),
		chunker:     NewChunker(),
		logger:      logger,
		maxFileSize: DefaultMaxFileSize,
		jobTimeout:  DefaultJobTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConvertSync runs the whole pipeline inline and returns a terminal job.
func (s *conversionService) ConvertSync(ctx context.Context, req driving.ConvertRequest) (*domain.ConversionJob, *domain.RateDecision, error) {
	job, decision, err := s.admit(ctx, req)
	if err != nil {
		return nil, decision, err
	}

	runCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()
	s.run(runCtx, job)

	if err := s.jobStore.Update(ctx, job); err != nil {
		s.logger.Error("failed to persist finished job", "job_id", job.ID, "error", err)
	}
	return job, decision, nil
}

// ConvertAsync admits the request, persists the job, and enqueues it.
func (s *conversionService) ConvertAsync(ctx context.Context, req driving.ConvertRequest) (*domain.ConversionJob, *domain.RateDecision, error) {
	job, decision, err := s.admit(ctx, req)
	if err != nil {
		return nil, decision, err
	}

	if err := s.queue.Enqueue(ctx, job.ID); err != nil {
		now := s.now()
		job.Fail(fmt.Errorf("enqueue: %w", err), now)
		if uerr := s.jobStore.Update(ctx, job); uerr != nil {
			s.logger.Error("failed to persist enqueue failure", "job_id", job.ID, "error", uerr)
		}
		return nil, decision, err
	}

	s.logger.Info("conversion job enqueued",
		"job_id", job.ID,
		"kind", job.Kind,
		"size_bytes", job.SizeBytes)
	return job, decision, nil
}

// Process runs the pipeline for an enqueued job. Pipeline failures are
// recorded on the job; the returned error covers infrastructure problems
// only, so the worker knows whether to ack or nack.
func (s *conversionService) Process(ctx context.Context, jobID string) error {
	job, err := s.jobStore.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if job.State.Terminal() {
		// Redelivered after completion; nothing to do.
		return nil
	}

	runCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()
	s.run(runCtx, job)

	if err := s.jobStore.Update(ctx, job); err != nil {
		return fmt.Errorf("persist job %s: %w", jobID, err)
	}
	return nil
}

// GetJob returns a job by id.
func (s *conversionService) GetJob(ctx context.Context, id string) (*domain.ConversionJob, error) {
	return s.jobStore.Get(ctx, id)
}

// admit runs the prechecks and the rate-limit gate, then creates the job in
// admitted state. Prechecks run before admission so a request that cannot
// possibly be processed never consumes quota.
func (s *conversionService) admit(ctx context.Context, req driving.ConvertRequest) (*domain.ConversionJob, *domain.RateDecision, error) {
	if err := req.Options.Validate(); err != nil {
		return nil, nil, err
	}
	if s.maxFileSize > 0 && int64(len(req.Data)) > s.maxFileSize {
		return nil, nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", domain.ErrFileTooLarge, len(req.Data), s.maxFileSize)
	}
	kind, err := s.classifier.Classify(req.Filename, req.DeclaredMIME, req.Data)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	var decision *domain.RateDecision
	if req.Key != nil {
		decision, err = s.limiter.Admit(ctx, req.Key.ID, req.Key.Limits(), now)
		if err != nil {
			// A broken counter store must not take conversions down with it.
			s.logger.Warn("rate limiter unavailable, admitting without quota", "error", err)
			decision = nil
		} else if !decision.Allowed {
			return nil, decision, &domain.RateLimitError{Decision: decision}
		}
	}

	sum := sha256.Sum256(req.Data)
	job := &domain.ConversionJob{
		ID:           uuid.New().String(),
		Filename:     req.Filename,
		DeclaredMIME: req.DeclaredMIME,
		SizeBytes:    int64(len(req.Data)),
		FileHash:     hex.EncodeToString(sum[:]),
		Data:         req.Data,
		Options:      req.Options,
		State:        domain.JobSubmitted,
		Kind:         kind,
		SubmittedAt:  now,
	}
	if req.Key != nil {
		job.APIKeyID = req.Key.ID
	}
	if err := job.Transition(domain.JobAdmitted); err != nil {
		return nil, decision, err
	}
	if err := s.jobStore.Create(ctx, job); err != nil {
		return nil, decision, fmt.Errorf("create job: %w", err)
	}
	return job, decision, nil
}

// run executes classify through chunk on an admitted job, leaving it
// terminal. Stage transitions are persisted so async status polls see
// progress.
func (s *conversionService) run(ctx context.Context, job *domain.ConversionJob) {
	started := s.now()
	job.StartedAt = &started

	fail := func(err error) {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: conversion exceeded %s", domain.ErrTimeout, s.jobTimeout)
		}
		job.Fail(err, s.now())
		s.logger.Error("conversion failed",
			"job_id", job.ID,
			"kind", job.Kind,
			"code", job.ErrorCode,
			"error", err)
	}

	advance := func(next domain.JobState) bool {
		if err := job.Transition(next); err != nil {
			fail(err)
			return false
		}
		if err := s.jobStore.Update(ctx, job); err != nil {
			s.logger.Warn("failed to persist job state", "job_id", job.ID, "state", next, "error", err)
		}
		return true
	}

	// Kind was resolved during prechecks; the classifying stage re-validates
	// that an extractor is actually registered for it.
	if !advance(domain.JobClassifying) {
		return
	}
	extractor, err := s.registry.ExtractorFor(job.Kind)
	if err != nil {
		fail(err)
		return
	}

	if !advance(domain.JobExtracting) {
		return
	}
	raw, err := extractor.Extract(ctx, driven.ExtractionRequest{
		Filename: job.Filename,
		Data:     job.Data,
		Options:  job.Options,
	})
	if err != nil {
		fail(err)
		return
	}

	if !advance(domain.JobNormalizing) {
		return
	}
	pages := s.normalizer.Normalize(raw, job.Options)

	if !advance(domain.JobChunking) {
		return
	}
	chunks, err := s.chunker.Chunk(pages, job.Options)
	if err != nil {
		fail(err)
		return
	}

	finished := s.now()
	stats := BuildStatistics(pages, chunks, finished.Sub(started))
	if job.Options.IncludeRawText {
		job.RawText = s.normalizer.RawText(pages)
	}
	job.Complete(pages, chunks, stats, finished)
	// Payload is no longer needed once output exists.
	job.Data = nil

	s.logger.Info("conversion completed",
		"job_id", job.ID,
		"kind", job.Kind,
		"pages", stats.TotalPages,
		"chunks", stats.TotalChunks,
		"elapsed_ms", stats.ProcessingTimeMS)
}
