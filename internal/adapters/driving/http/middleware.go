package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/intakeline/intakeline-core/internal/core/domain"
	"github.com/intakeline/intakeline-core/internal/core/ports/driving"
)

// SessionCookieName is the cookie the dashboard stores the session token in.
const SessionCookieName = "intakeline_session"

// Context keys
type contextKey string

const (
	authContextKey contextKey = "auth_context"
	requestLogKey  contextKey = "request_log"
)

// RequestIDHeader is echoed back on every response and attached to request logs.
const RequestIDHeader = "X-Request-ID"

// AuthMiddleware handles authentication and authorization
type AuthMiddleware struct {
	authService driving.AuthService
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(authService driving.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// Authenticate validates the request token and adds auth context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		authCtx, err := m.authService.ValidateToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "token expired")
			} else {
				writeError(w, http.StatusUnauthorized, "invalid token")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAuthContext(r.Context(), authCtx)))
	})
}

// Identify attaches the auth context when the request carries a valid token
// and passes anonymous requests through unchanged.
func (m *AuthMiddleware) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := extractToken(r); token != "" {
			if authCtx, err := m.authService.ValidateToken(r.Context(), token); err == nil {
				r = r.WithContext(WithAuthContext(r.Context(), authCtx))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin admits only tenant admins. Disconnecting an integration needs it.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return requireRole(next, (*domain.AuthContext).IsAdmin, "admin access required")
}

// RequireConnect admits admins and members, who may connect and refresh integrations.
func (m *AuthMiddleware) RequireConnect(next http.Handler) http.Handler {
	return requireRole(next, (*domain.AuthContext).CanConnect, "insufficient permissions")
}

func requireRole(next http.Handler, allowed func(*domain.AuthContext) bool, denied string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch authCtx := GetAuthContext(r.Context()); {
		case authCtx == nil:
			writeError(w, http.StatusUnauthorized, "unauthorized")
		case !allowed(authCtx):
			writeError(w, http.StatusForbidden, denied)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// WithAuthContext stores the auth context in ctx and tags the request log with its tenant.
func WithAuthContext(ctx context.Context, authCtx *domain.AuthContext) context.Context {
	if rl, ok := ctx.Value(requestLogKey).(*requestLog); ok && authCtx != nil {
		rl.tenantID = authCtx.TenantID
	}
	return context.WithValue(ctx, authContextKey, authCtx)
}

// GetAuthContext retrieves the auth context from request context
func GetAuthContext(ctx context.Context) *domain.AuthContext {
	if ctx == nil {
		return nil
	}
	authCtx, ok := ctx.Value(authContextKey).(*domain.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// extractToken prefers the Authorization header over the session cookie
func extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

// extractBearerToken extracts the Bearer token from Authorization header
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// Logging middleware

// LoggingMiddleware logs HTTP requests
type LoggingMiddleware struct {
	logger *slog.Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware
func NewLoggingMiddleware(logger *slog.Logger) *LoggingMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingMiddleware{logger: logger}
}

// requestLog collects fields that inner handlers learn after the logger has run.
type requestLog struct {
	id       string
	tenantID string
}

// Handler wraps an http.Handler with request logging.
// Only the path is logged; query strings carry authorization codes.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rl := &requestLog{id: requestID(r)}
		w.Header().Set(RequestIDHeader, rl.id)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), requestLogKey, rl)))

		attrs := []any{
			"request_id", rl.id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start),
		}
		if rl.tenantID != "" {
			attrs = append(attrs, "tenant_id", rl.tenantID)
		}
		m.logger.Info("http request", attrs...)
	})
}

// requestID reuses a sane inbound request id or generates one.
func requestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" && len(id) <= 64 && !strings.ContainsAny(id, " \r\n") {
		return id
	}
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Recovery middleware

// RecoveryMiddleware recovers from panics
type RecoveryMiddleware struct {
	logger *slog.Logger
}

// NewRecoveryMiddleware creates a new RecoveryMiddleware
func NewRecoveryMiddleware(logger *slog.Logger) *RecoveryMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryMiddleware{logger: logger}
}

// Handler wraps an http.Handler with panic recovery
func (m *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("panic recovered", "panic", err, "path", r.URL.Path, "request_id", w.Header().Get(RequestIDHeader))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CORS middleware

// CORSMiddleware lets the dashboard origin call the API with its session cookie.
type CORSMiddleware struct {
	allowAny bool
	origins  map[string]struct{}
}

// NewCORSMiddleware accepts exact origins. "*" opens the API to any origin
// without credentials, so the session cookie never rides a wildcard request.
func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	m := &CORSMiddleware{origins: make(map[string]struct{}, len(allowedOrigins))}
	for _, o := range allowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			m.allowAny = true
			continue
		}
		if o != "" {
			m.origins[o] = struct{}{}
		}
	}
	return m
}

// trusted reports whether origin is listed explicitly and may send credentials.
func (m *CORSMiddleware) trusted(origin string) bool {
	if origin == "" {
		return false
	}
	_, ok := m.origins[origin]
	return ok
}

// Handler wraps an http.Handler with CORS headers.
// Listed origins are echoed with credentials; anything else under "*" gets a bare wildcard.
func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Add("Vary", "Origin")

		origin := r.Header.Get("Origin")
		switch {
		case m.trusted(origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		case origin != "" && m.allowAny:
			h.Set("Access-Control-Allow-Origin", "*")
		default:
			origin = ""
		}
		if origin != "" {
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)
			h.Set("Access-Control-Expose-Headers", RequestIDHeader)
			h.Set("Access-Control-Max-Age", "86400")
		}

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
