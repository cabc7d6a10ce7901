package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.RateLimiter = (*RateLimiter)(nil)

const (
	minuteKeyPrefix = "fileforge:ratelimit:minute:"
	dayKeyPrefix    = "fileforge:ratelimit:day:"
)

// RateLimiter implements fixed-window admission control on Redis. Both
// windows are checked and incremented in one Lua script so two concurrent
// requests can never both take the last slot, and a rejected request
// increments nothing.
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter creates a new Redis-backed RateLimiter.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// admitScript checks both counters against their limits and increments only
// when both are under capacity. KEYS: minute key, day key. ARGV: rpm, rpd,
// minute TTL seconds, day TTL seconds.
// Returns {allowed, minuteCount, dayCount, minuteTTL, dayTTL}.
var admitScript = redis.NewScript(`
	local minute = tonumber(redis.call("get", KEYS[1]) or "0")
	local day = tonumber(redis.call("get", KEYS[2]) or "0")
	local rpm = tonumber(ARGV[1])
	local rpd = tonumber(ARGV[2])

	if minute >= rpm or day >= rpd then
		local mttl = redis.call("ttl", KEYS[1])
		local dttl = redis.call("ttl", KEYS[2])
		return {0, minute, day, mttl, dttl}
	end

	minute = redis.call("incr", KEYS[1])
	if minute == 1 then
		redis.call("expire", KEYS[1], tonumber(ARGV[3]))
	end
	day = redis.call("incr", KEYS[2])
	if day == 1 then
		redis.call("expire", KEYS[2], tonumber(ARGV[4]))
	end

	local mttl = redis.call("ttl", KEYS[1])
	local dttl = redis.call("ttl", KEYS[2])
	return {1, minute, day, mttl, dttl}
`)

// Admit checks both windows for the key and consumes one slot from each when
// allowed.
func (r *RateLimiter) Admit(ctx context.Context, keyID string, limits domain.RateLimits, now time.Time) (*domain.RateDecision, error) {
	keys := []string{minuteKeyPrefix + keyID, dayKeyPrefix + keyID}
	args := []interface{}{
		limits.RPM,
		limits.RPD,
		int(domain.MinuteWindow.Seconds()),
		int(domain.DayWindow.Seconds()),
	}

	result, err := admitScript.Run(ctx, r.client, keys, args...).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit admit: %w", err)
	}
	return r.decision(result, limits, now)
}

// usageScript reads both counters without touching them.
var usageScript = redis.NewScript(`
	local minute = tonumber(redis.call("get", KEYS[1]) or "0")
	local day = tonumber(redis.call("get", KEYS[2]) or "0")
	local mttl = redis.call("ttl", KEYS[1])
	local dttl = redis.call("ttl", KEYS[2])
	local allowed = 1
	if minute >= tonumber(ARGV[1]) or day >= tonumber(ARGV[2]) then
		allowed = 0
	end
	return {allowed, minute, day, mttl, dttl}
`)

// Usage reports current window state without consuming quota.
func (r *RateLimiter) Usage(ctx context.Context, keyID string, limits domain.RateLimits, now time.Time) (*domain.RateDecision, error) {
	keys := []string{minuteKeyPrefix + keyID, dayKeyPrefix + keyID}
	result, err := usageScript.Run(ctx, r.client, keys, limits.RPM, limits.RPD).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit usage: %w", err)
	}
	return r.decision(result, limits, now)
}

// Reset clears the counters for a key.
func (r *RateLimiter) Reset(ctx context.Context, keyID string) error {
	if err := r.client.Del(ctx, minuteKeyPrefix+keyID, dayKeyPrefix+keyID).Err(); err != nil {
		return fmt.Errorf("rate limit reset: %w", err)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (r *RateLimiter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RateLimiter) decision(result interface{}, limits domain.RateLimits, now time.Time) (*domain.RateDecision, error) {
	vals, ok := result.([]interface{})
	if !ok || len(vals) != 5 {
		return nil, fmt.Errorf("rate limit script returned unexpected shape %T", result)
	}
	allowed := vals[0].(int64) == 1
	minuteCount := int(vals[1].(int64))
	dayCount := int(vals[2].(int64))
	minuteTTL := time.Duration(vals[3].(int64)) * time.Second
	dayTTL := time.Duration(vals[4].(int64)) * time.Second

	// A counter with no TTL yet (-1/-2) resets a full window from now.
	if minuteTTL <= 0 {
		minuteTTL = domain.MinuteWindow
	}
	if dayTTL <= 0 {
		dayTTL = domain.DayWindow
	}

	d := &domain.RateDecision{
		Allowed:         allowed,
		MinuteLimit:     limits.RPM,
		MinuteRemaining: limits.RPM - minuteCount,
		MinuteReset:     now.Add(minuteTTL),
		DayLimit:        limits.RPD,
		DayRemaining:    limits.RPD - dayCount,
		DayReset:        now.Add(dayTTL),
	}
	if d.MinuteRemaining < 0 {
		d.MinuteRemaining = 0
	}
	if d.DayRemaining < 0 {
		d.DayRemaining = 0
	}
	if !allowed {
		d.RetryAfter = int(minuteTTL.Seconds())
		if d.DayRemaining == 0 && d.MinuteRemaining > 0 {
			// Day window is the binding constraint.
			d.RetryAfter = int(dayTTL.Seconds())
		}
		if d.RetryAfter < 1 {
			d.RetryAfter = 1
		}
	}
	return d, nil
}
