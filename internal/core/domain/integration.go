package domain

import "time"

// RefreshWindow is how long before expiry an access token is considered stale.
const RefreshWindow = 5 * time.Minute

// IntegrationCredential is the persisted record of a tenant's provider connection.
// Token fields hold encrypted blobs, never plaintext.
// A tenant has at most one credential per provider.
type IntegrationCredential struct {
	ID           string       `json:"id"`
	TenantID     string       `json:"tenant_id"`
	Provider     ProviderType `json:"provider"`
	AccountEmail string       `json:"account_email"`

	// AccessToken is the encrypted access token blob
	AccessToken string `json:"-"`

	// RefreshToken is the encrypted refresh token blob, nil if the provider never issued one
	RefreshToken *string `json:"-"`

	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	Scopes         []string   `json:"scopes,omitempty"`

	// SyncErrors counts consecutive provider API failures since the last successful refresh
	SyncErrors int `json:"sync_errors"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IntegrationSummary is a safe view without token material.
type IntegrationSummary struct {
	Provider       ProviderType `json:"provider"`
	ProviderName   string       `json:"provider_name"`
	AccountEmail   string       `json:"account_email"`
	TokenExpiresAt *time.Time   `json:"token_expires_at,omitempty"`
	SyncErrors     int          `json:"sync_errors"`
	CanRefresh     bool         `json:"can_refresh"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// ToSummary converts IntegrationCredential to IntegrationSummary
func (c *IntegrationCredential) ToSummary() *IntegrationSummary {
	return &IntegrationSummary{
		Provider:       c.Provider,
		ProviderName:   c.Provider.DisplayName(),
		AccountEmail:   c.AccountEmail,
		TokenExpiresAt: c.TokenExpiresAt,
		SyncErrors:     c.SyncErrors,
		CanRefresh:     c.RefreshToken != nil && *c.RefreshToken != "",
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// NeedsRefresh returns true if the access token expires within RefreshWindow.
// Credentials without a known expiry are never refreshed proactively.
func (c *IntegrationCredential) NeedsRefresh(now time.Time) bool {
	if c.TokenExpiresAt == nil {
		return false
	}
	return now.Add(RefreshWindow).After(*c.TokenExpiresAt)
}

// DecryptedCredential is the plaintext view handed to in-process collaborators.
// It must never be serialized into an HTTP response.
type DecryptedCredential struct {
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	ExpiresAt    *time.Time `json:"-"`
}
