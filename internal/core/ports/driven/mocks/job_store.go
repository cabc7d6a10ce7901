package mocks

import (
	"context"
	"sync"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

// MockJobStore is an in-memory JobStore for testing
type MockJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*domain.ConversionJob

	CreateCalls int
	UpdateCalls int

	// FailCreate / FailUpdate force the next call to return this error
	FailCreate error
	FailUpdate error
}

// NewMockJobStore creates a new MockJobStore
func NewMockJobStore() *MockJobStore {
	return &MockJobStore{jobs: make(map[string]*domain.ConversionJob)}
}

func (m *MockJobStore) Create(ctx context.Context, job *domain.ConversionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.FailCreate != nil {
		return m.FailCreate
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MockJobStore) Update(ctx context.Context, job *domain.ConversionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.FailUpdate != nil {
		return m.FailUpdate
	}
	if _, ok := m.jobs[job.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MockJobStore) Get(ctx context.Context, id string) (*domain.ConversionJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

// Count returns the number of stored jobs
func (m *MockJobStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}
