// Package google implements the OAuth client for Google Calendar.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/intakeline/intakeline-core/internal/core/domain"
	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
)

// Ensure OAuthClient implements the interface.
var _ driven.OAuthClient = (*OAuthClient)(nil)

const (
	// DefaultUserInfoURL returns the email of the granting account.
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	defaultTimeout = 10 * time.Second

	// maxErrorBody caps how much of a provider error body is kept for logs
	maxErrorBody = 2048
)

// CalendarScopes are requested on every connect.
var CalendarScopes = []string{
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/calendar.events",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// Config configures the Google OAuth client.
type Config struct {
	ClientID     string
	ClientSecret string

	// Timeout bounds every provider call. Defaults to 10s.
	Timeout time.Duration

	// Endpoint and UserInfoURL override Google's URLs in tests.
	Endpoint    *oauth2.Endpoint
	UserInfoURL string
}

// OAuthClient drives the authorization-code grant against Google.
type OAuthClient struct {
	config      oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewOAuthClient creates a Google Calendar OAuth client.
// A client without credentials is valid but reports IsConfigured() == false.
func NewOAuthClient(cfg Config) *OAuthClient {
	endpoint := googleoauth.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	// Credentials always travel in the form body; auto-detection would retry the
	// single-use code with a second request.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = DefaultUserInfoURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &OAuthClient{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       CalendarScopes,
		},
		userInfoURL: userInfoURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Provider returns the provider type.
func (c *OAuthClient) Provider() domain.ProviderType {
	return domain.ProviderTypeGoogleCalendar
}

// IsConfigured reports whether client id and secret are present.
func (c *OAuthClient) IsConfigured() bool {
	return c.config.ClientID != "" && c.config.ClientSecret != ""
}

// BuildAuthorizationURL constructs the consent screen URL.
// Offline access with a forced consent prompt makes Google issue a refresh
// token on every connect, not only the first.
func (c *OAuthClient) BuildAuthorizationURL(state, redirectURI string) string {
	cfg := c.withRedirect(redirectURI)
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode exchanges an authorization code for tokens.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*domain.OAuthToken, error) {
	if !c.IsConfigured() {
		return nil, domain.ErrProviderNotConfigured
	}

	cfg := c.withRedirect(redirectURI)
	tok, err := cfg.Exchange(c.clientContext(ctx), code)
	if err != nil {
		return nil, providerError("token exchange", err)
	}
	return toDomainToken(tok, ""), nil
}

// RefreshToken obtains a fresh access token.
// RefreshToken on the result is set only when Google rotated it.
func (c *OAuthClient) RefreshToken(ctx context.Context, refreshToken string) (*domain.OAuthToken, error) {
	if !c.IsConfigured() {
		return nil, domain.ErrProviderNotConfigured
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("token refresh: %w", domain.ErrInvalidInput)
	}

	src := c.config.TokenSource(c.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, providerError("token refresh", err)
	}
	return toDomainToken(tok, refreshToken), nil
}

// FetchAccountEmail returns the email address of the granting account.
func (c *OAuthClient) FetchAccountEmail(ctx context.Context, accessToken string) (string, error) {
	client := oauth2.NewClient(c.clientContext(ctx), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read userinfo response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo: status %d: %s: %w", resp.StatusCode, truncate(body), domain.ErrProviderRequest)
	}

	var info struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("userinfo: no email returned: %w", domain.ErrProviderRequest)
	}
	return info.Email, nil
}

func (c *OAuthClient) withRedirect(redirectURI string) *oauth2.Config {
	cfg := c.config
	cfg.RedirectURL = redirectURI
	return &cfg
}

// clientContext makes the oauth2 package use the client with our timeout.
func (c *OAuthClient) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func toDomainToken(tok *oauth2.Token, previousRefresh string) *domain.OAuthToken {
	out := &domain.OAuthToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresIn:   tok.ExpiresIn,
	}

	// oauth2 carries the old refresh token forward when the response omits one
	if tok.RefreshToken != previousRefresh {
		out.RefreshToken = tok.RefreshToken
	}

	if out.ExpiresIn <= 0 && !tok.Expiry.IsZero() {
		out.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scope = scope
	}
	return out
}

// providerError keeps the provider's status and body for server logs.
func providerError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return fmt.Errorf("%s: status %d: %s: %w", op, status, truncate(re.Body), domain.ErrProviderRequest)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
