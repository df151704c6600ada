package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/swaggo/swag"

	"github.com/intakeline/intakeline-core/internal/adapters/driving/http/docs"
	"github.com/intakeline/intakeline-core/internal/core/domain"
	"github.com/intakeline/intakeline-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"integration not found"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings PostgreSQL, and Redis when configured
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "dependency", "postgres", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "dependency", "redis", "error", err)
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleDocs serves the registered OpenAPI document
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		writeError(w, http.StatusNotFound, "api docs not available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// Integration endpoints

// handleListIntegrations godoc
// @Summary      List integrations
// @Description  List the tenant's connected integrations. Token material is never returned.
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.IntegrationSummary
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /integrations [get]
func (s *Server) handleListIntegrations(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	summaries, err := s.integrationService.List(r.Context(), authCtx.TenantID)
	if err != nil {
		s.logger.Error("failed to list integrations", "tenant_id", authCtx.TenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list integrations")
		return
	}

	writeJSON(w, http.StatusOK, summaries)
}

// handleConnect godoc
// @Summary      Start integration connect flow
// @Description  Returns the provider consent URL for the session tenant
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Param        provider  path      string  true  "Provider type"  Enums(google_calendar)
// @Success      200       {object}  driving.ConnectResponse
// @Failure      400       {object}  ErrorResponse  "Unsupported provider"
// @Failure      403       {object}  ErrorResponse  "Insufficient permissions"
// @Failure      429       {object}  ErrorResponse  "Too many connect attempts"
// @Failure      503       {object}  ErrorResponse  "Provider not configured"
// @Router       /integrations/{provider}/connect [post]
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	if !s.allowConnect(r, authCtx) {
		writeError(w, http.StatusTooManyRequests, "too many connect attempts")
		return
	}

	resp, err := s.integrationService.Connect(r.Context(), authCtx.TenantID, providerParam(r))
	if err != nil {
		status, msg := s.integrationErrorStatus(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleConnectRedirect godoc
// @Summary      Start integration connect flow (browser)
// @Description  Redirects the browser to the provider consent screen. Failures redirect to the dashboard with an error code.
// @Tags         Integrations
// @Param        provider  path  string  true  "Provider type"  Enums(google_calendar)
// @Success      302
// @Router       /integrations/{provider}/connect [get]
func (s *Server) handleConnectRedirect(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil || !authCtx.CanConnect() {
		s.redirectDashboard(w, r, "error", string(domain.CallbackErrorUnauthorized))
		return
	}

	if !s.allowConnect(r, authCtx) {
		s.redirectDashboard(w, r, "error", string(domain.CallbackErrorRateLimited))
		return
	}

	resp, err := s.integrationService.Connect(r.Context(), authCtx.TenantID, providerParam(r))
	if err != nil {
		code := domain.CallbackErrorCallbackFailed
		switch {
		case errors.Is(err, domain.ErrUnsupportedProvider):
			code = domain.CallbackErrorUnsupported
		case errors.Is(err, domain.ErrProviderNotConfigured):
			code = domain.CallbackErrorNotConfigured
		default:
			s.logger.Error("failed to start connect flow", "tenant_id", authCtx.TenantID, "error", err)
		}
		s.redirectDashboard(w, r, "error", string(code))
		return
	}

	http.Redirect(w, r, resp.AuthorizationURL, http.StatusFound)
}

// handleCallback godoc
// @Summary      OAuth callback
// @Description  Provider redirect target. Verifies state against the session tenant, stores encrypted tokens and redirects to the dashboard.
// @Tags         Integrations
// @Param        provider  path   string  true   "Provider type"  Enums(google_calendar)
// @Param        code      query  string  false  "Authorization code"
// @Param        state     query  string  false  "Signed state token"
// @Param        error     query  string  false  "Provider error"
// @Success      302
// @Router       /integrations/{provider}/callback [get]
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := driving.CallbackRequest{
		Provider: providerParam(r),
		Code:     q.Get("code"),
		State:    q.Get("state"),
		Error:    q.Get("error"),
	}
	if authCtx := GetAuthContext(r.Context()); authCtx != nil {
		req.SessionTenantID = authCtx.TenantID
	}

	if _, err := s.integrationService.HandleCallback(r.Context(), req); err != nil {
		code := domain.CallbackErrorCallbackFailed
		var ie *driving.IntegrationError
		if errors.As(err, &ie) {
			code = ie.Code
		}
		s.redirectDashboard(w, r, "error", string(code))
		return
	}

	s.redirectDashboard(w, r, "connected", string(req.Provider))
}

// handleRefreshIntegration godoc
// @Summary      Refresh integration tokens
// @Description  Exchanges the stored refresh token for a new access token
// @Tags         Integrations
// @Produce      json
// @Security     BearerAuth
// @Param        provider  path      string  true  "Provider type"  Enums(google_calendar)
// @Success      200       {object}  domain.IntegrationSummary
// @Failure      404       {object}  ErrorResponse  "Integration not found"
// @Failure      409       {object}  ErrorResponse  "Refresh in progress or integration must be reconnected"
// @Failure      502       {object}  ErrorResponse  "Provider rejected the refresh"
// @Router       /integrations/{provider}/refresh [post]
func (s *Server) handleRefreshIntegration(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	summary, err := s.integrationService.RefreshCredential(r.Context(), authCtx.TenantID, providerParam(r))
	if err != nil {
		status, msg := s.integrationErrorStatus(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleDisconnect godoc
// @Summary      Disconnect integration
// @Description  Deletes the integration and its encrypted tokens (admin only)
// @Tags         Integrations
// @Security     BearerAuth
// @Param        provider  path  string  true  "Provider type"  Enums(google_calendar)
// @Success      204
// @Failure      403  {object}  ErrorResponse  "Admin access required"
// @Failure      404  {object}  ErrorResponse  "Integration not found"
// @Router       /integrations/{provider} [delete]
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())

	if err := s.integrationService.Disconnect(r.Context(), authCtx.TenantID, providerParam(r)); err != nil {
		status, msg := s.integrationErrorStatus(err)
		writeError(w, status, msg)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// allowConnect applies the per-tenant connect budget. Limiter failures let the request through.
func (s *Server) allowConnect(r *http.Request, authCtx *domain.AuthContext) bool {
	if s.rateLimiter == nil {
		return true
	}
	ok, err := s.rateLimiter.Allow(r.Context(), "connect:"+authCtx.TenantID)
	if err != nil {
		s.logger.Warn("rate limiter unavailable", "error", err)
		return true
	}
	return ok
}

// integrationErrorStatus maps service errors to a status and a message safe for clients.
func (s *Server) integrationErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrUnsupportedProvider):
		return http.StatusBadRequest, "unsupported provider"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "integration not found"
	case errors.Is(err, domain.ErrRefreshInProgress):
		return http.StatusConflict, "refresh already in progress"
	case errors.Is(err, domain.ErrIntegrationBroken):
		return http.StatusConflict, "integration must be reconnected"
	case errors.Is(err, domain.ErrProviderNotConfigured):
		return http.StatusServiceUnavailable, "provider not configured"
	case errors.Is(err, domain.ErrProviderRequest):
		return http.StatusBadGateway, "provider request failed"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	}
	s.logger.Error("integration request failed", "error", err)
	return http.StatusInternalServerError, "internal server error"
}

// redirectDashboard sends the browser to the integrations settings page with a single query parameter.
func (s *Server) redirectDashboard(w http.ResponseWriter, r *http.Request, key, value string) {
	target := s.dashboardURL + "/settings/integrations?" + url.Values{key: {value}}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

func providerParam(r *http.Request) domain.ProviderType {
	return domain.ProviderType(r.PathValue("provider"))
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
