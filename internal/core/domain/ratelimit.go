package domain

import "time"

// Window lengths for the two fixed rate-limit windows.
const (
	MinuteWindow = time.Minute
	DayWindow    = 24 * time.Hour
)

// RateLimits is the per-key admission configuration.
type RateLimits struct {
	RPM int
	RPD int
}

// RateDecision is the outcome of one admission check, including the quota
// telemetry every response carries.
type RateDecision struct {
	Allowed bool

	// RetryAfter is seconds until the minute window resets. Only meaningful
	// when Allowed is false; the minute window is the tighter limit so it
	// drives the retry hint.
	RetryAfter int

	MinuteLimit     int
	MinuteRemaining int
	MinuteReset     time.Time

	DayLimit     int
	DayRemaining int
	DayReset     time.Time
}

// RateLimitWindow holds the two fixed-window counters for one API key.
// Entry created on first request for a key, never evicted within process
// lifetime unless the key-management collaborator signals revocation.
type RateLimitWindow struct {
	MinuteStart time.Time
	MinuteCount int
	DayStart    time.Time
	DayCount    int
}
