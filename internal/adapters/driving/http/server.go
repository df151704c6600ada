package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
	"github.com/intakeline/intakeline-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// dashboardURL receives the browser after connect and callback redirects
	dashboardURL string

	// Services
	authService        driving.AuthService
	integrationService driving.IntegrationService

	// Infrastructure
	rateLimiter driven.RateLimiter // nil disables rate limiting
	db          Pinger             // PostgreSQL health check
	redisClient Pinger             // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	Version      string
	DashboardURL string

	// CORSAllowedOrigins lists origins allowed to call the API from a browser
	CORSAllowedOrigins []string

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		Version:      "dev",
		DashboardURL: "http://localhost:3000",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authService driving.AuthService,
	integrationService driving.IntegrationService,
	rateLimiter driven.RateLimiter, // can be nil
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:             http.NewServeMux(),
		version:            cfg.Version,
		logger:             logger,
		dashboardURL:       strings.TrimRight(cfg.DashboardURL, "/"),
		authService:        authService,
		integrationService: integrationService,
		rateLimiter:        rateLimiter,
		db:                 db,
		redisClient:        redisClient,
	}

	s.setupRoutes()

	var handler http.Handler = s.router
	handler = NewCORSMiddleware(cfg.CORSAllowedOrigins).Handler(handler)
	handler = NewLoggingMiddleware(logger).Handler(handler)
	handler = NewRecoveryMiddleware(logger).Handler(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /api/docs/doc.json", s.handleDocs)

	// Integration endpoints (authenticated)
	s.router.Handle("GET /api/v1/integrations",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListIntegrations)))
	s.router.Handle("POST /api/v1/integrations/{provider}/connect",
		authMiddleware.Authenticate(
			authMiddleware.RequireConnect(http.HandlerFunc(s.handleConnect))))
	s.router.Handle("POST /api/v1/integrations/{provider}/refresh",
		authMiddleware.Authenticate(
			authMiddleware.RequireConnect(http.HandlerFunc(s.handleRefreshIntegration))))
	s.router.Handle("DELETE /api/v1/integrations/{provider}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleDisconnect))))

	// Browser redirect flow. Failures are reported on the dashboard, not as JSON.
	s.router.Handle("GET /api/v1/integrations/{provider}/connect",
		authMiddleware.Identify(http.HandlerFunc(s.handleConnectRedirect)))
	s.router.Handle("GET /api/v1/integrations/{provider}/callback",
		authMiddleware.Identify(http.HandlerFunc(s.handleCallback)))
}

// Handler returns the fully wrapped handler, for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
