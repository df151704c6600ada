package driven

import (
	"context"
	"time"

	"github.com/intakeline/intakeline-core/internal/core/domain"
)

// IntegrationStore persists encrypted integration credentials.
// Records are keyed by (tenant, provider); there is at most one per pair.
type IntegrationStore interface {
	// Upsert creates the credential or overwrites the existing one for the same
	// (tenant, provider). SyncErrors is stored as given.
	Upsert(ctx context.Context, cred *domain.IntegrationCredential) error

	// Get retrieves the credential for a tenant and provider.
	// Returns domain.ErrNotFound if none exists.
	Get(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.IntegrationCredential, error)

	// ListByTenant returns every credential belonging to a tenant.
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.IntegrationCredential, error)

	// UpdateTokens replaces token blobs and expiry after a refresh and resets SyncErrors to 0.
	// A nil refreshToken leaves the stored refresh blob untouched.
	UpdateTokens(ctx context.Context, tenantID string, provider domain.ProviderType, accessToken string, refreshToken *string, expiresAt *time.Time) error

	// IncrementSyncErrors bumps the consecutive failure counter and returns the new value.
	IncrementSyncErrors(ctx context.Context, tenantID string, provider domain.ProviderType) (int, error)

	// Delete removes the credential. Returns domain.ErrNotFound if none exists.
	Delete(ctx context.Context, tenantID string, provider domain.ProviderType) error
}
