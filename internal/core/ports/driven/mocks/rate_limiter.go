package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

// MockRateLimiter is a RateLimiter test double. By default every request is
// allowed with full quota remaining; set Decision to force a specific answer.
type MockRateLimiter struct {
	mu sync.Mutex

	AdmitCalls int
	LastKeyID  string

	Decision *domain.RateDecision
	FailWith error
}

// NewMockRateLimiter creates a new MockRateLimiter
func NewMockRateLimiter() *MockRateLimiter {
	return &MockRateLimiter{}
}

func (m *MockRateLimiter) Admit(ctx context.Context, keyID string, limits domain.RateLimits, now time.Time) (*domain.RateDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AdmitCalls++
	m.LastKeyID = keyID
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	if m.Decision != nil {
		return m.Decision, nil
	}
	return allowAll(limits, now), nil
}

func (m *MockRateLimiter) Usage(ctx context.Context, keyID string, limits domain.RateLimits, now time.Time) (*domain.RateDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	if m.Decision != nil {
		return m.Decision, nil
	}
	return allowAll(limits, now), nil
}

func (m *MockRateLimiter) Reset(ctx context.Context, keyID string) error {
	return nil
}

func allowAll(limits domain.RateLimits, now time.Time) *domain.RateDecision {
	return &domain.RateDecision{
		Allowed:         true,
		MinuteLimit:     limits.RPM,
		MinuteRemaining: limits.RPM - 1,
		MinuteReset:     now.Truncate(time.Minute).Add(time.Minute),
		DayLimit:        limits.RPD,
		DayRemaining:    limits.RPD - 1,
		DayReset:        now.Truncate(24 * time.Hour).Add(24 * time.Hour),
	}
}
