package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/intakeline/intakeline-core/internal/core/domain"
	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
)

var _ driven.IntegrationStore = (*MockIntegrationStore)(nil)

// MockIntegrationStore is an in-memory IntegrationStore for testing
type MockIntegrationStore struct {
	mu    sync.RWMutex
	creds map[string]*domain.IntegrationCredential

	// Custom behavior hooks (optional)
	UpsertFn func(cred *domain.IntegrationCredential) error
}

// NewMockIntegrationStore creates a new MockIntegrationStore
func NewMockIntegrationStore() *MockIntegrationStore {
	return &MockIntegrationStore{
		creds: make(map[string]*domain.IntegrationCredential),
	}
}

func integrationKey(tenantID string, provider domain.ProviderType) string {
	return tenantID + ":" + string(provider)
}

func (m *MockIntegrationStore) Upsert(ctx context.Context, cred *domain.IntegrationCredential) error {
	if m.UpsertFn != nil {
		if err := m.UpsertFn(cred); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := integrationKey(cred.TenantID, cred.Provider)
	stored := *cred
	if existing, ok := m.creds[key]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
		if stored.RefreshToken == nil && stored.AccountEmail == existing.AccountEmail {
			stored.RefreshToken = existing.RefreshToken
		}
	}
	if stored.ID == "" {
		stored.ID = "cred-" + key
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = time.Now()
	m.creds[key] = &stored
	cred.ID = stored.ID
	cred.CreatedAt = stored.CreatedAt
	return nil
}

func (m *MockIntegrationStore) Get(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.IntegrationCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, ok := m.creds[integrationKey(tenantID, provider)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *cred
	return &copied, nil
}

func (m *MockIntegrationStore) ListByTenant(ctx context.Context, tenantID string) ([]*domain.IntegrationCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.IntegrationCredential
	for _, cred := range m.creds {
		if cred.TenantID == tenantID {
			copied := *cred
			result = append(result, &copied)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Provider < result[j].Provider })
	return result, nil
}

func (m *MockIntegrationStore) UpdateTokens(ctx context.Context, tenantID string, provider domain.ProviderType, accessToken string, refreshToken *string, expiresAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred, ok := m.creds[integrationKey(tenantID, provider)]
	if !ok {
		return domain.ErrNotFound
	}
	cred.AccessToken = accessToken
	if refreshToken != nil {
		cred.RefreshToken = refreshToken
	}
	cred.TokenExpiresAt = expiresAt
	cred.SyncErrors = 0
	cred.UpdatedAt = time.Now()
	return nil
}

func (m *MockIntegrationStore) IncrementSyncErrors(ctx context.Context, tenantID string, provider domain.ProviderType) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cred, ok := m.creds[integrationKey(tenantID, provider)]
	if !ok {
		return 0, domain.ErrNotFound
	}
	cred.SyncErrors++
	return cred.SyncErrors, nil
}

func (m *MockIntegrationStore) Delete(ctx context.Context, tenantID string, provider domain.ProviderType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := integrationKey(tenantID, provider)
	if _, ok := m.creds[key]; !ok {
		return domain.ErrNotFound
	}
	delete(m.creds, key)
	return nil
}

// Count returns the number of stored credentials (for test assertions).
func (m *MockIntegrationStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.creds)
}
