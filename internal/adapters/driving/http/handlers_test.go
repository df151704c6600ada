package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/intakeline/intakeline-core/internal/core/domain"
	"github.com/intakeline/intakeline-core/internal/core/ports/driving"
)

const (
	dashboard = "https://app.intakeline.com"
	calendar  = domain.ProviderTypeGoogleCalendar
)

var sessions = map[string]*domain.AuthContext{
	"admin-token":  {UserID: "u-admin", TenantID: "tenant-a", Role: domain.RoleAdmin},
	"member-token": {UserID: "u-member", TenantID: "tenant-a", Role: domain.RoleMember},
	"viewer-token": {UserID: "u-viewer", TenantID: "tenant-a", Role: domain.RoleViewer},
}

type testServer struct {
	handler      http.Handler
	integrations *mockIntegrationService
	limiter      *mockRateLimiter
	db           *mockPinger
	redis        *mockPinger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		integrations: &mockIntegrationService{},
		limiter:      &mockRateLimiter{allowed: true},
		db:           &mockPinger{},
		redis:        &mockPinger{},
	}
	cfg := DefaultConfig()
	cfg.Version = "1.2.3"
	cfg.DashboardURL = dashboard + "/"
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	srv := NewServer(cfg, tokenAuth(sessions), ts.integrations, ts.limiter, ts.db, ts.redis)
	ts.handler = srv.Handler()
	t.Cleanup(func() { ts.integrations.AssertExpectations(t) })
	return ts
}

func (ts *testServer) do(method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func errorBody(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func dashboardRedirect(key, value string) string {
	return dashboard + "/settings/integrations?" + url.Values{key: {value}}.Encode()
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do("GET", "/health", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = ts.do("GET", "/version", "")
	assert.JSONEq(t, `{"version":"1.2.3"}`, rr.Body.String())

	rr = ts.do("GET", "/ready", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	ts.redis.err = errors.New("connection refused")
	rr = ts.do("GET", "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "redis unavailable", errorBody(t, rr))

	ts.db.err = errors.New("connection refused")
	rr = ts.do("GET", "/ready", "")
	assert.Equal(t, "database unavailable", errorBody(t, rr))
}

func TestDocsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do("GET", "/api/docs/doc.json", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, "/api/v1", doc["basePath"])
	assert.Contains(t, doc["paths"], "/integrations/{provider}/callback")
}

func TestListIntegrations(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do("GET", "/api/v1/integrations", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	ts.integrations.On("List", mock.Anything, "tenant-a").Return([]*domain.IntegrationSummary{
		{Provider: calendar, ProviderName: "Google Calendar", AccountEmail: "calendar@firm.example.com", CanRefresh: true},
	}, nil).Once()

	rr = ts.do("GET", "/api/v1/integrations", "viewer-token")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "access_token")

	var got []domain.IntegrationSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "calendar@firm.example.com", got[0].AccountEmail)
}

func TestConnect_JSON(t *testing.T) {
	expires := time.Date(2026, 3, 1, 9, 5, 0, 0, time.UTC)

	tests := []struct {
		name       string
		token      string
		limited    bool
		serviceErr error
		wantStatus int
		wantError  string
	}{
		{name: "member ok", token: "member-token", wantStatus: http.StatusOK},
		{name: "viewer forbidden", token: "viewer-token", wantStatus: http.StatusForbidden, wantError: "insufficient permissions"},
		{name: "rate limited", token: "admin-token", limited: true, wantStatus: http.StatusTooManyRequests, wantError: "too many connect attempts"},
		{name: "not configured", token: "admin-token", serviceErr: domain.ErrProviderNotConfigured, wantStatus: http.StatusServiceUnavailable, wantError: "provider not configured"},
		{name: "unsupported", token: "admin-token", serviceErr: domain.ErrUnsupportedProvider, wantStatus: http.StatusBadRequest, wantError: "unsupported provider"},
		{name: "state failure", token: "admin-token", serviceErr: fmt.Errorf("generate state: %w", errors.New("rand")), wantStatus: http.StatusInternalServerError, wantError: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.limiter.allowed = !tt.limited

			callsService := tt.token != "viewer-token" && !tt.limited
			if callsService {
				if tt.serviceErr != nil {
					ts.integrations.On("Connect", mock.Anything, "tenant-a", calendar).Return(nil, tt.serviceErr).Once()
				} else {
					ts.integrations.On("Connect", mock.Anything, "tenant-a", calendar).Return(&driving.ConnectResponse{
						AuthorizationURL: "https://accounts.google.com/o/oauth2/auth?state=abc",
						ExpiresAt:        expires,
					}, nil).Once()
				}
			}

			rr := ts.do("POST", "/api/v1/integrations/google_calendar/connect", tt.token)
			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorBody(t, rr))
				return
			}

			var resp driving.ConnectResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, "https://accounts.google.com/o/oauth2/auth?state=abc", resp.AuthorizationURL)
			assert.True(t, resp.ExpiresAt.Equal(expires))
			assert.Equal(t, []string{"connect:tenant-a"}, ts.limiter.keys)
		})
	}
}

func TestConnect_Redirect(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		ts := newTestServer(t)
		rr := ts.do("GET", "/api/v1/integrations/google_calendar/connect", "")
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, dashboardRedirect("error", "unauthorized"), rr.Header().Get("Location"))
	})

	t.Run("viewer", func(t *testing.T) {
		ts := newTestServer(t)
		rr := ts.do("GET", "/api/v1/integrations/google_calendar/connect", "viewer-token")
		assert.Equal(t, dashboardRedirect("error", "unauthorized"), rr.Header().Get("Location"))
	})

	t.Run("rate limited", func(t *testing.T) {
		ts := newTestServer(t)
		ts.limiter.allowed = false
		rr := ts.do("GET", "/api/v1/integrations/google_calendar/connect", "member-token")
		assert.Equal(t, dashboardRedirect("error", "rate_limited"), rr.Header().Get("Location"))
	})

	t.Run("limiter down fails open", func(t *testing.T) {
		ts := newTestServer(t)
		ts.limiter.err = errors.New("redis down")
		ts.integrations.On("Connect", mock.Anything, "tenant-a", calendar).
			Return(&driving.ConnectResponse{AuthorizationURL: "https://accounts.google.com/consent"}, nil).Once()

		rr := ts.do("GET", "/api/v1/integrations/google_calendar/connect", "member-token")
		assert.Equal(t, "https://accounts.google.com/consent", rr.Header().Get("Location"))
	})

	t.Run("cookie session", func(t *testing.T) {
		ts := newTestServer(t)
		ts.integrations.On("Connect", mock.Anything, "tenant-a", calendar).
			Return(&driving.ConnectResponse{AuthorizationURL: "https://accounts.google.com/consent"}, nil).Once()

		req := httptest.NewRequest("GET", "/api/v1/integrations/google_calendar/connect", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "member-token"})
		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "https://accounts.google.com/consent", rr.Header().Get("Location"))
	})

	codes := map[error]string{
		domain.ErrProviderNotConfigured: "not_configured",
		domain.ErrUnsupportedProvider:   "unsupported_provider",
		errors.New("boom"):              "callback_failed",
	}
	for serviceErr, code := range codes {
		t.Run(code, func(t *testing.T) {
			ts := newTestServer(t)
			ts.integrations.On("Connect", mock.Anything, "tenant-a", mock.Anything).Return(nil, serviceErr).Once()

			rr := ts.do("GET", "/api/v1/integrations/google_calendar/connect", "admin-token")
			assert.Equal(t, dashboardRedirect("error", code), rr.Header().Get("Location"))
		})
	}
}

func TestCallback(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ts := newTestServer(t)
		ts.integrations.On("HandleCallback", mock.Anything, driving.CallbackRequest{
			Provider:        calendar,
			Code:            "auth-code",
			State:           "signed-state",
			SessionTenantID: "tenant-a",
		}).Return(&driving.CallbackResponse{Integration: &domain.IntegrationSummary{Provider: calendar}}, nil).Once()

		req := httptest.NewRequest("GET", "/api/v1/integrations/google_calendar/callback?code=auth-code&state=signed-state", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "member-token"})
		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, dashboardRedirect("connected", "google_calendar"), rr.Header().Get("Location"))
	})

	t.Run("anonymous session reaches the service without a tenant", func(t *testing.T) {
		ts := newTestServer(t)
		ts.integrations.On("HandleCallback", mock.Anything, mock.MatchedBy(func(req driving.CallbackRequest) bool {
			return req.SessionTenantID == ""
		})).Return(nil, driving.NewIntegrationError(domain.CallbackErrorUnauthorized, domain.ErrUnauthorized)).Once()

		rr := ts.do("GET", "/api/v1/integrations/google_calendar/callback?code=c&state=s", "")
		assert.Equal(t, dashboardRedirect("error", "unauthorized"), rr.Header().Get("Location"))
	})

	t.Run("provider denial is forwarded", func(t *testing.T) {
		ts := newTestServer(t)
		ts.integrations.On("HandleCallback", mock.Anything, mock.MatchedBy(func(req driving.CallbackRequest) bool {
			return req.Error == "access_denied" && req.Code == ""
		})).Return(nil, driving.NewIntegrationError(domain.CallbackErrorAccessDenied, nil)).Once()

		rr := ts.do("GET", "/api/v1/integrations/google_calendar/callback?error=access_denied&state=s", "member-token")
		assert.Equal(t, dashboardRedirect("error", "access_denied"), rr.Header().Get("Location"))
	})

	t.Run("only the code reaches the browser", func(t *testing.T) {
		ts := newTestServer(t)
		cause := fmt.Errorf("%w: status 400: invalid_grant", domain.ErrProviderRequest)
		ts.integrations.On("HandleCallback", mock.Anything, mock.Anything).
			Return(nil, driving.NewIntegrationError(domain.CallbackErrorCallbackFailed, cause)).Once()

		rr := ts.do("GET", "/api/v1/integrations/google_calendar/callback?code=c&state=s", "member-token")
		loc := rr.Header().Get("Location")
		assert.Equal(t, dashboardRedirect("error", "callback_failed"), loc)
		assert.NotContains(t, loc, "invalid_grant")
		assert.NotContains(t, rr.Body.String(), "invalid_grant")
	})

	t.Run("untyped error", func(t *testing.T) {
		ts := newTestServer(t)
		ts.integrations.On("HandleCallback", mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

		rr := ts.do("GET", "/api/v1/integrations/google_calendar/callback?code=c&state=s", "member-token")
		assert.Equal(t, dashboardRedirect("error", "callback_failed"), rr.Header().Get("Location"))
	})
}

func TestRefreshIntegration(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ok", nil, http.StatusOK},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"in progress", domain.ErrRefreshInProgress, http.StatusConflict},
		{"broken", domain.ErrIntegrationBroken, http.StatusConflict},
		{"provider rejected", fmt.Errorf("refresh token: %w", domain.ErrProviderRequest), http.StatusBadGateway},
		{"not configured", domain.ErrProviderNotConfigured, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			if tt.err != nil {
				ts.integrations.On("RefreshCredential", mock.Anything, "tenant-a", calendar).Return(nil, tt.err).Once()
			} else {
				ts.integrations.On("RefreshCredential", mock.Anything, "tenant-a", calendar).
					Return(&domain.IntegrationSummary{Provider: calendar, CanRefresh: true}, nil).Once()
			}

			rr := ts.do("POST", "/api/v1/integrations/google_calendar/refresh", "member-token")
			assert.Equal(t, tt.wantStatus, rr.Code)
		})
	}

	ts := newTestServer(t)
	rr := ts.do("POST", "/api/v1/integrations/google_calendar/refresh", "viewer-token")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestDisconnect(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do("DELETE", "/api/v1/integrations/google_calendar", "member-token")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	ts.integrations.On("Disconnect", mock.Anything, "tenant-a", calendar).Return(nil).Once()
	rr = ts.do("DELETE", "/api/v1/integrations/google_calendar", "admin-token")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	ts.integrations.On("Disconnect", mock.Anything, "tenant-a", calendar).Return(domain.ErrNotFound).Once()
	rr = ts.do("DELETE", "/api/v1/integrations/google_calendar", "admin-token")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
