// Package ratelimit provides the in-process fixed-window rate limiter used
// when no Redis backend is configured. Single-instance deployments get the
// same admission semantics as the Redis limiter without the dependency.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RateLimiter = (*MemoryLimiter)(nil)

// MemoryLimiter keeps both fixed-window counters per key in process memory.
// The mutex makes check-and-increment atomic; a rejected request increments
// nothing.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*domain.RateLimitWindow
}

// NewMemoryLimiter creates a new MemoryLimiter
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*domain.RateLimitWindow)}
}

// Admit checks both windows for the key and consumes one slot from each when
// under capacity.
func (l *MemoryLimiter) Admit(ctx context.Context, keyID string, limits domain.RateLimits, now time.Time) (*domain.RateDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.window(keyID, now)
	d := decision(w, limits, now)
	if !d.Allowed {
		return d, nil
	}

	w.MinuteCount++
	w.DayCount++
	d.MinuteRemaining = limits.RPM - w.MinuteCount
	d.DayRemaining = limits.RPD - w.DayCount
	return d, nil
}

// Usage reports current window state without consuming quota.
func (l *MemoryLimiter) Usage(ctx context.Context, keyID string, limits domain.RateLimits, now time.Time) (*domain.RateDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return decision(l.window(keyID, now), limits, now), nil
}

// Reset clears the counters for a key.
func (l *MemoryLimiter) Reset(ctx context.Context, keyID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, keyID)
	return nil
}

// window returns the key's counters, rolling over any window now has passed.
// Caller holds the mutex.
func (l *MemoryLimiter) window(keyID string, now time.Time) *domain.RateLimitWindow {
	minuteStart := now.Truncate(domain.MinuteWindow)
	dayStart := now.Truncate(domain.DayWindow)

	w, ok := l.windows[keyID]
	if !ok {
		w = &domain.RateLimitWindow{MinuteStart: minuteStart, DayStart: dayStart}
		l.windows[keyID] = w
		return w
	}
	if !w.MinuteStart.Equal(minuteStart) {
		w.MinuteStart = minuteStart
		w.MinuteCount = 0
	}
	if !w.DayStart.Equal(dayStart) {
		w.DayStart = dayStart
		w.DayCount = 0
	}
	return w
}

func decision(w *domain.RateLimitWindow, limits domain.RateLimits, now time.Time) *domain.RateDecision {
	minuteReset := w.MinuteStart.Add(domain.MinuteWindow)
	dayReset := w.DayStart.Add(domain.DayWindow)

	d := &domain.RateDecision{
		Allowed:         w.MinuteCount < limits.RPM && w.DayCount < limits.RPD,
		MinuteLimit:     limits.RPM,
		MinuteRemaining: limits.RPM - w.MinuteCount,
		MinuteReset:     minuteReset,
		DayLimit:        limits.RPD,
		DayRemaining:    limits.RPD - w.DayCount,
		DayReset:        dayReset,
	}
	if d.MinuteRemaining < 0 {
		d.MinuteRemaining = 0
	}
	if d.DayRemaining < 0 {
		d.DayRemaining = 0
	}
	if !d.Allowed {
		retry := minuteReset.Sub(now)
		if w.DayCount >= limits.RPD && w.MinuteCount < limits.RPM {
			retry = dayReset.Sub(now)
		}
		d.RetryAfter = int(retry.Seconds())
		if d.RetryAfter < 1 {
			d.RetryAfter = 1
		}
	}
	return d
}
