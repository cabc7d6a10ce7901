package driven

import (
	"context"
	"time"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

// RateLimiter is the admission controller's counter store. Implementations
// must make the check-and-increment atomic: two concurrent Admit calls for
// the same key must never both observe the last remaining slot.
type RateLimiter interface {
	// Admit checks both fixed windows for the key and, when under capacity,
	// consumes one slot from each. A rejected request consumes no quota.
	Admit(ctx context.Context, keyID string, limits domain.RateLimits, now time.Time) (*domain.RateDecision, error)

	// Usage reports current window state without consuming quota.
	Usage(ctx context.Context, keyID string, limits domain.RateLimits, now time.Time) (*domain.RateDecision, error)

	// Reset clears the counters for a key. Called when the key-management
	// collaborator signals revocation.
	Reset(ctx context.Context, keyID string) error
}
