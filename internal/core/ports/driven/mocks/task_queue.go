package mocks

import (
	"context"
	"sync"
	"time"
)

// MockTaskQueue is an in-memory TaskQueue for testing
type MockTaskQueue struct {
	mu      sync.Mutex
	pending []string

	EnqueueCalls int
	Acked        []string
	Nacked       []string

	FailEnqueue error
}

// NewMockTaskQueue creates a new MockTaskQueue
func NewMockTaskQueue() *MockTaskQueue {
	return &MockTaskQueue{}
}

func (m *MockTaskQueue) Enqueue(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EnqueueCalls++
	if m.FailEnqueue != nil {
		return m.FailEnqueue
	}
	m.pending = append(m.pending, jobID)
	return nil
}

func (m *MockTaskQueue) DequeueWithTimeout(ctx context.Context, timeoutSec int) (string, error) {
	deadline := time.Now().Add(time.Duration(timeoutSec) * time.Second)
	for {
		m.mu.Lock()
		if len(m.pending) > 0 {
			jobID := m.pending[0]
			m.pending = m.pending[1:]
			m.mu.Unlock()
			return jobID, nil
		}
		m.mu.Unlock()
		if time.Now().After(deadline) {
			return "", nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (m *MockTaskQueue) Ack(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Acked = append(m.Acked, jobID)
	return nil
}

func (m *MockTaskQueue) Nack(ctx context.Context, jobID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Nacked = append(m.Nacked, jobID)
	return nil
}

func (m *MockTaskQueue) Ping(ctx context.Context) error {
	return nil
}

// Pending returns the queued job IDs
func (m *MockTaskQueue) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.pending))
	copy(out, m.pending)
	return out
}

// AckedJobs returns the acked job IDs
func (m *MockTaskQueue) AckedJobs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Acked))
	copy(out, m.Acked)
	return out
}

// NackedJobs returns the nacked job IDs
func (m *MockTaskQueue) NackedJobs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Nacked))
	copy(out, m.Nacked)
	return out
}
