package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the session token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the session token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrUnsupportedProvider indicates the integration provider is not registered
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrProviderNotConfigured indicates the OAuth client credentials are missing
	ErrProviderNotConfigured = errors.New("provider not configured")

	// ErrProviderRequest indicates the identity provider rejected a request
	ErrProviderRequest = errors.New("provider request failed")

	// ErrInvalidState indicates the OAuth state is malformed, expired, or forged
	ErrInvalidState = errors.New("invalid oauth state")

	// ErrTenantMismatch indicates the session tenant differs from the state tenant
	ErrTenantMismatch = errors.New("tenant mismatch")

	// ErrIntegrationBroken indicates stored credentials can no longer be used
	// and the tenant must reconnect the integration
	ErrIntegrationBroken = errors.New("integration needs reconnection")

	// ErrRefreshInProgress indicates another instance is refreshing the same credential
	ErrRefreshInProgress = errors.New("refresh already in progress")

	// ErrRateLimited indicates the caller exceeded its request budget
	ErrRateLimited = errors.New("rate limited")
)
