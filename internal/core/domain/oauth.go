package domain

import "time"

// OAuthState is the verified content of a signed state token.
// It is never persisted; the token itself carries everything needed to verify it.
type OAuthState struct {
	TenantID string
	IssuedAt time.Time
	Nonce    string
}

// OAuthToken is the token set returned by a provider's token endpoint.
type OAuthToken struct {
	AccessToken string

	// RefreshToken is empty when the provider did not issue a new one
	RefreshToken string

	TokenType string
	Scope     string

	// ExpiresIn is the access token lifetime in seconds, 0 if unknown
	ExpiresIn int64
}

// ExpiresAt converts ExpiresIn into an absolute time relative to now.
func (t *OAuthToken) ExpiresAt(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	at := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	return &at
}

// CallbackErrorCode is the machine-readable reason an OAuth callback failed.
// It is the only failure detail ever shown to the end user.
type CallbackErrorCode string

const (
	CallbackErrorInvalidState    CallbackErrorCode = "invalid_state"
	CallbackErrorSessionMismatch CallbackErrorCode = "session_mismatch"
	CallbackErrorAccessDenied    CallbackErrorCode = "access_denied"
	CallbackErrorMissingCode     CallbackErrorCode = "missing_code"
	CallbackErrorCallbackFailed  CallbackErrorCode = "callback_failed"
	CallbackErrorNotConfigured   CallbackErrorCode = "not_configured"
	CallbackErrorUnsupported     CallbackErrorCode = "unsupported_provider"
	CallbackErrorRateLimited     CallbackErrorCode = "rate_limited"
	CallbackErrorUnauthorized    CallbackErrorCode = "unauthorized"
)
