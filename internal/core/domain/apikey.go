package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// APIKey is the record an authenticated request resolves to. Key creation,
// rotation, and revocation belong to the external key-management service;
// the core only reads records to drive admission.
type APIKey struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	KeyPrefix string     `json:"key_prefix"` // first characters of the raw key, for display
	KeyHash   string     `json:"-"`          // hex SHA-256 of the full raw key
	RPM       int        `json:"rate_limit_rpm"`
	RPD       int        `json:"rate_limit_rpd"`
	Active    bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Per-key rate limit defaults applied when a record carries zero values.
const (
	DefaultRPM = 60
	DefaultRPD = 1000
)

// Limits returns the key's configured limits with defaults applied.
func (k *APIKey) Limits() RateLimits {
	limits := RateLimits{RPM: k.RPM, RPD: k.RPD}
	if limits.RPM <= 0 {
		limits.RPM = DefaultRPM
	}
	if limits.RPD <= 0 {
		limits.RPD = DefaultRPD
	}
	return limits
}

// Valid reports whether the key may authenticate requests right now.
func (k *APIKey) Valid(now time.Time) bool {
	if !k.Active {
		return false
	}
	if k.ExpiresAt != nil && now.After(*k.ExpiresAt) {
		return false
	}
	return true
}

// HashKey returns the hex SHA-256 digest of a raw API key. Keys are stored
// and looked up by digest only; the raw key never touches the database.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
