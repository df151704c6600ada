package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrUnauthorized", ErrUnauthorized, "unauthorized"},
		{"ErrForbidden", ErrForbidden, "forbidden"},
		{"ErrTokenExpired", ErrTokenExpired, "token expired"},
		{"ErrTokenInvalid", ErrTokenInvalid, "token invalid"},
		{"ErrUnsupportedProvider", ErrUnsupportedProvider, "unsupported provider"},
		{"ErrProviderNotConfigured", ErrProviderNotConfigured, "provider not configured"},
		{"ErrProviderRequest", ErrProviderRequest, "provider request failed"},
		{"ErrInvalidState", ErrInvalidState, "invalid oauth state"},
		{"ErrTenantMismatch", ErrTenantMismatch, "tenant mismatch"},
		{"ErrIntegrationBroken", ErrIntegrationBroken, "integration needs reconnection"},
		{"ErrRefreshInProgress", ErrRefreshInProgress, "refresh already in progress"},
		{"ErrRateLimited", ErrRateLimited, "rate limited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrUnsupportedProvider,
		ErrProviderNotConfigured,
		ErrProviderRequest,
		ErrInvalidState,
		ErrTenantMismatch,
		ErrIntegrationBroken,
		ErrRefreshInProgress,
		ErrRateLimited,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("errors should be distinct: %v and %v", err1, err2)
			}
		}
	}
}

func TestErrorsIsWrapped(t *testing.T) {
	wrapped := fmt.Errorf("token exchange: status 400: %w", ErrProviderRequest)
	if !errors.Is(wrapped, ErrProviderRequest) {
		t.Error("expected wrapped error to match ErrProviderRequest")
	}
	if errors.Is(wrapped, ErrInvalidState) {
		t.Error("wrapped error should not match ErrInvalidState")
	}
}
