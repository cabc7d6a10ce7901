package driven

import (
	"context"

	"github.com/fileforge/fileforge-core/internal/core/domain"
)

// JobStore persists conversion jobs for the async path and status polling.
// The core never assumes a specific storage engine behind this interface.
type JobStore interface {
	Create(ctx context.Context, job *domain.ConversionJob) error
	Update(ctx context.Context, job *domain.ConversionJob) error

	// Get returns domain.ErrNotFound when no job has the given id.
	Get(ctx context.Context, id string) (*domain.ConversionJob, error)
}

// KeyStore resolves API-key records. Key lifecycle (creation, rotation,
// revocation) is owned by the external key-management collaborator.
type KeyStore interface {
	// GetByHash returns domain.ErrNotFound when no key matches the digest.
	GetByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
}
