package driving

import (
	"context"
	"time"

	"github.com/intakeline/intakeline-core/internal/core/domain"
)

// IntegrationService manages the OAuth lifecycle of tenant integrations.
// It is the interface collaborators (calendar sync, booking) use to obtain credentials.
type IntegrationService interface {
	// Connect starts an authorization flow for the tenant.
	// Returns domain.ErrUnsupportedProvider or domain.ErrProviderNotConfigured
	// when the flow cannot start.
	Connect(ctx context.Context, tenantID string, provider domain.ProviderType) (*ConnectResponse, error)

	// HandleCallback completes an authorization flow.
	// Every failure is an *IntegrationError carrying a CallbackErrorCode.
	HandleCallback(ctx context.Context, req CallbackRequest) (*CallbackResponse, error)

	// GetDecryptedCredential returns plaintext tokens for in-process use.
	// Returns nil, nil when the integration is absent or its tokens cannot be decrypted.
	GetDecryptedCredential(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.DecryptedCredential, error)

	// AccessToken returns a usable access token, refreshing it first when close to expiry.
	AccessToken(ctx context.Context, tenantID string, provider domain.ProviderType) (string, error)

	// RefreshCredential forces a token refresh.
	RefreshCredential(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.IntegrationSummary, error)

	// List returns summaries of every integration of the tenant.
	List(ctx context.Context, tenantID string) ([]*domain.IntegrationSummary, error)

	// Disconnect deletes the integration.
	Disconnect(ctx context.Context, tenantID string, provider domain.ProviderType) error

	// RecordSyncFailure counts a provider API failure against the integration.
	RecordSyncFailure(ctx context.Context, tenantID string, provider domain.ProviderType) (int, error)
}

// ConnectResponse contains the consent screen URL.
// @Description Response containing the OAuth authorization URL
type ConnectResponse struct {
	AuthorizationURL string    `json:"authorization_url" example:"https://accounts.google.com/o/oauth2/auth?client_id=..."`
	ExpiresAt        time.Time `json:"expires_at" example:"2025-01-15T10:05:00Z"`
}

// CallbackRequest carries the provider redirect parameters and the session tenant.
type CallbackRequest struct {
	Provider domain.ProviderType
	Code     string
	State    string

	// Error is the provider's error parameter, e.g. access_denied
	Error string

	// SessionTenantID is the tenant of the authenticated session, empty if unauthenticated
	SessionTenantID string
}

// CallbackResponse is returned when an integration was stored.
type CallbackResponse struct {
	Integration *domain.IntegrationSummary `json:"integration"`
}

// IntegrationError is a callback failure with a code safe to show the end user.
type IntegrationError struct {
	Code domain.CallbackErrorCode
	Err  error
}

func (e *IntegrationError) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code)
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}

// NewIntegrationError wraps err with a callback error code.
func NewIntegrationError(code domain.CallbackErrorCode, err error) *IntegrationError {
	return &IntegrationError{Code: code, Err: err}
}
