package driven

import (
	"context"

	"github.com/intakeline/intakeline-core/internal/core/domain"
)

// OAuthClient performs the provider side of the authorization-code grant.
type OAuthClient interface {
	// Provider returns the provider this client talks to.
	Provider() domain.ProviderType

	// IsConfigured reports whether client credentials are present.
	IsConfigured() bool

	// BuildAuthorizationURL returns the consent screen URL.
	// It always requests offline access and forces the consent prompt.
	BuildAuthorizationURL(state, redirectURI string) string

	// ExchangeCode trades an authorization code for tokens.
	// Any non-success response is an error wrapping domain.ErrProviderRequest.
	ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.OAuthToken, error)

	// RefreshToken obtains a new access token. The returned RefreshToken may be empty.
	RefreshToken(ctx context.Context, refreshToken string) (*domain.OAuthToken, error)

	// FetchAccountEmail looks up the email of the account that granted access.
	FetchAccountEmail(ctx context.Context, accessToken string) (string, error)
}
