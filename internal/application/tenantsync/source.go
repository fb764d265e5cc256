package tenantsync

import (
	"context"

	"github.com/bizops/backend/internal/domain/shared"
)

// Source yields the latest snapshot of a tenant's collection. The lifecycle
// engine and analytics read through it.
type Source interface {
	Read(ctx context.Context, tenantID string, c shared.Collection) (*Snapshot, error)
}

// StoreSource reads a fresh snapshot from the store on every call. It serves
// request-scoped callers that do not hold a long-lived Layer.
type StoreSource struct {
	store shared.DocumentStore
}

// NewStoreSource creates a StoreSource
func NewStoreSource(store shared.DocumentStore) *StoreSource {
	return &StoreSource{store: store}
}

// Read implements Source
func (s *StoreSource) Read(ctx context.Context, tenantID string, c shared.Collection) (*Snapshot, error) {
	if tenantID == "" {
		return nil, shared.NewValidationError("tenant id is required")
	}
	records, err := s.store.List(ctx, c, tenantID)
	if err != nil {
		return nil, shared.StoreUnavailable(err)
	}
	return NewSnapshot(c, tenantID, records), nil
}

var _ Source = (*StoreSource)(nil)
