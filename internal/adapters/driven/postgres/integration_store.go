package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/intakeline/intakeline-core/internal/core/domain"
	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IntegrationStore = (*IntegrationStore)(nil)

// IntegrationStore implements driven.IntegrationStore using PostgreSQL.
// Token columns hold blobs that were encrypted before reaching this layer.
type IntegrationStore struct {
	db *DB
}

// NewIntegrationStore creates a new IntegrationStore
func NewIntegrationStore(db *DB) *IntegrationStore {
	return &IntegrationStore{db: db}
}

const integrationColumns = `id, tenant_id, provider, account_email, access_token_enc, refresh_token_enc,
	token_expires_at, scopes, sync_errors, created_at, updated_at`

// Upsert inserts the credential or overwrites the row for the same (tenant, provider).
// The row keeps its id and created_at. A nil refresh token keeps the stored one,
// but only when the same account reconnected.
func (s *IntegrationStore) Upsert(ctx context.Context, cred *domain.IntegrationCredential) error {
	now := time.Now()
	if cred.CreatedAt.IsZero() {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now

	scopes := cred.Scopes
	if scopes == nil {
		scopes = []string{}
	}

	query := `
		INSERT INTO integration_credentials (` + integrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tenant_id, provider) DO UPDATE SET
			account_email = EXCLUDED.account_email,
			access_token_enc = EXCLUDED.access_token_enc,
			refresh_token_enc = CASE
				WHEN integration_credentials.account_email = EXCLUDED.account_email
				THEN COALESCE(EXCLUDED.refresh_token_enc, integration_credentials.refresh_token_enc)
				ELSE EXCLUDED.refresh_token_enc
			END,
			token_expires_at = EXCLUDED.token_expires_at,
			scopes = EXCLUDED.scopes,
			sync_errors = EXCLUDED.sync_errors,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
		cred.ID,
		cred.TenantID,
		string(cred.Provider),
		cred.AccountEmail,
		cred.AccessToken,
		nullable(cred.RefreshToken),
		nullable(cred.TokenExpiresAt),
		pq.Array(scopes),
		cred.SyncErrors,
		cred.CreatedAt,
		cred.UpdatedAt,
	).Scan(&cred.ID, &cred.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert integration: %w", err)
	}
	return nil
}

// Get retrieves the credential for a tenant and provider
func (s *IntegrationStore) Get(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.IntegrationCredential, error) {
	query := `SELECT ` + integrationColumns + `
		FROM integration_credentials
		WHERE tenant_id = $1 AND provider = $2`

	cred, err := scanIntegration(s.db.QueryRowContext(ctx, query, tenantID, string(provider)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get integration: %w", err)
	}
	return cred, nil
}

// ListByTenant returns all credentials of a tenant ordered by provider
func (s *IntegrationStore) ListByTenant(ctx context.Context, tenantID string) ([]*domain.IntegrationCredential, error) {
	query := `SELECT ` + integrationColumns + `
		FROM integration_credentials
		WHERE tenant_id = $1
		ORDER BY provider`

	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	defer rows.Close()

	var creds []*domain.IntegrationCredential
	for rows.Next() {
		cred, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan integration: %w", err)
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

// UpdateTokens stores refreshed tokens and clears the sync error counter
func (s *IntegrationStore) UpdateTokens(ctx context.Context, tenantID string, provider domain.ProviderType, accessToken string, refreshToken *string, expiresAt *time.Time) error {
	query := `
		UPDATE integration_credentials SET
			access_token_enc = $3,
			refresh_token_enc = COALESCE($4, refresh_token_enc),
			token_expires_at = $5,
			sync_errors = 0,
			updated_at = NOW()
		WHERE tenant_id = $1 AND provider = $2
	`

	result, err := s.db.ExecContext(ctx, query,
		tenantID,
		string(provider),
		accessToken,
		nullable(refreshToken),
		nullable(expiresAt),
	)
	if err != nil {
		return fmt.Errorf("update integration tokens: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update integration tokens: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementSyncErrors bumps the failure counter and returns the new value
func (s *IntegrationStore) IncrementSyncErrors(ctx context.Context, tenantID string, provider domain.ProviderType) (int, error) {
	query := `
		UPDATE integration_credentials
		SET sync_errors = sync_errors + 1, updated_at = NOW()
		WHERE tenant_id = $1 AND provider = $2
		RETURNING sync_errors
	`

	var count int
	err := s.db.QueryRowContext(ctx, query, tenantID, string(provider)).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment sync errors: %w", err)
	}
	return count, nil
}

// Delete removes the credential
func (s *IntegrationStore) Delete(ctx context.Context, tenantID string, provider domain.ProviderType) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM integration_credentials WHERE tenant_id = $1 AND provider = $2`,
		tenantID, string(provider))
	if err != nil {
		return fmt.Errorf("delete integration: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete integration: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntegration(row rowScanner) (*domain.IntegrationCredential, error) {
	var (
		cred         domain.IntegrationCredential
		provider     string
		refreshToken sql.Null[string]
		expiresAt    sql.Null[time.Time]
		scopes       pq.StringArray
	)

	err := row.Scan(
		&cred.ID,
		&cred.TenantID,
		&provider,
		&cred.AccountEmail,
		&cred.AccessToken,
		&refreshToken,
		&expiresAt,
		&scopes,
		&cred.SyncErrors,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cred.Provider = domain.ProviderType(provider)
	cred.RefreshToken = optional(refreshToken)
	cred.TokenExpiresAt = optional(expiresAt)
	cred.Scopes = []string(scopes)
	return &cred, nil
}
