package memory

import (
	"context"
	"sync"

	"github.com/fileforge/fileforge-core/internal/core/domain"
	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.KeyStore = (*KeyStore)(nil)

// KeyStore holds API keys indexed by their SHA-256 digest. Keys are loaded
// once at startup (from config) and are read-only afterwards; Put exists for
// seeding and tests.
type KeyStore struct {
	mu   sync.RWMutex
	keys map[string]*domain.APIKey
}

// NewKeyStore creates a new in-memory KeyStore.
func NewKeyStore() *KeyStore {
	return &KeyStore{keys: make(map[string]*domain.APIKey)}
}

// Put registers a key under its hash.
func (s *KeyStore) Put(key *domain.APIKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *key
	s.keys[key.KeyHash] = &cp
}

// GetByHash looks up a key by its SHA-256 digest.
func (s *KeyStore) GetByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[keyHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *key
	return &cp, nil
}
