package mocks

import (
	"context"
	"net/url"
	"sync"

	"github.com/intakeline/intakeline-core/internal/core/domain"
	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
)

var _ driven.OAuthClient = (*MockOAuthClient)(nil)

// MockOAuthClient is a scriptable OAuthClient for testing.
// Unset hooks return a fixed successful token set.
type MockOAuthClient struct {
	mu sync.Mutex

	ProviderType domain.ProviderType
	Configured   bool

	ExchangeFn func(code, redirectURI string) (*domain.OAuthToken, error)
	RefreshFn  func(refreshToken string) (*domain.OAuthToken, error)
	EmailFn    func(accessToken string) (string, error)

	ExchangeCalls int
	RefreshCalls  int
}

// NewMockOAuthClient creates a configured Google Calendar client mock.
func NewMockOAuthClient() *MockOAuthClient {
	return &MockOAuthClient{
		ProviderType: domain.ProviderTypeGoogleCalendar,
		Configured:   true,
	}
}

func (m *MockOAuthClient) Provider() domain.ProviderType {
	return m.ProviderType
}

func (m *MockOAuthClient) IsConfigured() bool {
	return m.Configured
}

func (m *MockOAuthClient) BuildAuthorizationURL(state, redirectURI string) string {
	q := url.Values{}
	q.Set("state", state)
	q.Set("redirect_uri", redirectURI)
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	return "https://accounts.example.com/o/oauth2/auth?" + q.Encode()
}

func (m *MockOAuthClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.OAuthToken, error) {
	m.mu.Lock()
	m.ExchangeCalls++
	m.mu.Unlock()

	if m.ExchangeFn != nil {
		return m.ExchangeFn(code, redirectURI)
	}
	return &domain.OAuthToken{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	}, nil
}

func (m *MockOAuthClient) RefreshToken(ctx context.Context, refreshToken string) (*domain.OAuthToken, error) {
	m.mu.Lock()
	m.RefreshCalls++
	m.mu.Unlock()

	if m.RefreshFn != nil {
		return m.RefreshFn(refreshToken)
	}
	return &domain.OAuthToken{
		AccessToken: "refreshed-access",
		TokenType:   "Bearer",
		ExpiresIn:   3600,
	}, nil
}

func (m *MockOAuthClient) FetchAccountEmail(ctx context.Context, accessToken string) (string, error) {
	if m.EmailFn != nil {
		return m.EmailFn(accessToken)
	}
	return "calendar@firm.example.com", nil
}
