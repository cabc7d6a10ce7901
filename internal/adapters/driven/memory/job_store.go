// Package memory provides in-process implementations of the storage and
// queue ports. They back single-instance deployments and local development
// where neither Postgres nor Redis is configured.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.JobStore = (*JobStore)(nil)

// JobStore keeps conversion jobs in a mutex-guarded map. Jobs are copied on
// the way in and out so callers never share mutable state with the store.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.ConversionJob
}

// NewJobStore creates a new in-memory JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*domain.ConversionJob)}
}

// Create stores a new job. Fails if the ID is already taken.
func (s *JobStore) Create(ctx context.Context, job *domain.ConversionJob) error {
	if job == nil || job.ID == "" {
		return errors.New("job with id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists: " + job.ID)
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

// Update replaces a stored job.
func (s *JobStore) Update(ctx context.Context, job *domain.ConversionJob) error {
	if job == nil || job.ID == "" {
		return errors.New("job with id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists {
		return domain.ErrNotFound
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

// Get returns a copy of the stored job.
func (s *JobStore) Get(ctx context.Context, id string) (*domain.ConversionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}
