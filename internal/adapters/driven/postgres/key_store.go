package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.KeyStore = (*KeyStore)(nil)

// KeyStore implements driven.KeyStore using PostgreSQL. Rows are written by
// the external key-management service; this adapter only reads them.
type KeyStore struct {
	db *DB
}

// NewKeyStore creates a new KeyStore
func NewKeyStore(db *DB) *KeyStore {
	return &KeyStore{db: db}
}

// GetByHash retrieves an API key by its SHA-256 digest
func (s *KeyStore) GetByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	query := `
		SELECT id, name, key_prefix, key_hash, rpm, rpd, is_active, expires_at, created_at
		FROM api_keys
		WHERE key_hash = $1
	`

	var (
		key       domain.APIKey
		expiresAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, keyHash).Scan(
		&key.ID,
		&key.Name,
		&key.KeyPrefix,
		&key.KeyHash,
		&key.RPM,
		&key.RPD,
		&key.Active,
		&expiresAt,
		&key.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}

	key.ExpiresAt = TimePtr(expiresAt)
	return &key, nil
}
