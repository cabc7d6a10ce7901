package mocks

import (
	"context"
	"sync"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

// MockKeyStore is an in-memory KeyStore for testing
type MockKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*domain.APIKey // by key hash

	GetCalls int
	FailGet  error
}

// NewMockKeyStore creates a new MockKeyStore
func NewMockKeyStore() *MockKeyStore {
	return &MockKeyStore{keys: make(map[string]*domain.APIKey)}
}

// Add registers a key under its hash
func (m *MockKeyStore) Add(key *domain.APIKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key.KeyHash] = key
}

func (m *MockKeyStore) GetByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.GetCalls++
	if m.FailGet != nil {
		return nil, m.FailGet
	}
	key, ok := m.keys[keyHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *key
	return &cp, nil
}
