package main

// @title           Intakeline Core API
// @version         1.0
// @description     Calendar integration credentials for Intakeline tenants.

// @contact.name   Intakeline Engineering

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/intakeline/intakeline-core/internal/adapters/driven/auth"
	"github.com/intakeline/intakeline-core/internal/adapters/driven/google"
	"github.com/intakeline/intakeline-core/internal/adapters/driven/postgres"
	redisadapter "github.com/intakeline/intakeline-core/internal/adapters/driven/redis"
	"github.com/intakeline/intakeline-core/internal/adapters/driven/secret"
	"github.com/intakeline/intakeline-core/internal/adapters/driving/http"
	"github.com/intakeline/intakeline-core/internal/config"
	"github.com/intakeline/intakeline-core/internal/core/domain"
	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
	"github.com/intakeline/intakeline-core/internal/core/services"
)

var version = "dev"

func main() {
	// Run mode from RUN_MODE or the first argument
	mode := os.Getenv("RUN_MODE")
	args := os.Args[1:]
	if len(args) > 0 {
		mode, args = args[0], args[1:]
	}
	if mode == "" {
		mode = "api"
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)

	switch mode {
	case "api":
		err = runAPI(cfg, logger)
	case "issue-token":
		err = runIssueToken(cfg, args, os.Stdout)
	default:
		err = fmt.Errorf("unknown mode %q (expected api or issue-token)", mode)
	}
	if err != nil {
		logger.Error("intakeline-core exited with error", "mode", mode, "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func runAPI(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("intakeline-core starting", "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Key derivation is slow; fail at startup rather than on the first callback.
	cipher, err := secret.NewCipher(cfg.TokenEncryptionSecret, logger)
	if err != nil {
		return err
	}
	if err := cipher.Warm(); err != nil {
		return fmt.Errorf("derive token encryption key: %w", err)
	}

	states, err := secret.NewStateSigner(secret.StateSignerConfig{
		Secret: cfg.StateSecret,
		TTL:    cfg.OAuthStateTTL,
	})
	if err != nil {
		return err
	}

	// ===== PostgreSQL =====
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		return err
	}
	logger.Info("postgres connected and schema initialized")

	// ===== Redis (optional) =====
	var (
		redisClient *redis.Client
		lock        driven.DistributedLock
		rateLimiter driven.RateLimiter
		replayGuard driven.StateReplayGuard
		redisPinger http.Pinger
	)
	if cfg.RedisURL != "" {
		redisClient, err = redisadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		redisLock := redisadapter.NewLock(redisClient)
		lock = redisLock
		redisPinger = redisLock
		rateLimiter = redisadapter.NewRateLimiter(redisClient, cfg.ConnectRateLimitPerMinute, time.Minute)
		if cfg.OAuthStateSingleUse {
			replayGuard = redisadapter.NewStateReplayGuard(redisClient)
		}
		logger.Info("redis connected", "lock_owner", redisLock.OwnerID(), "single_use_state", cfg.OAuthStateSingleUse)
	} else {
		lock = postgres.NewAdvisoryLock(db)
		if cfg.OAuthStateSingleUse {
			pgGuard := postgres.NewStateReplayGuard(db)
			if n, err := pgGuard.Cleanup(ctx); err != nil {
				logger.Warn("failed to clean up consumed oauth states", "error", err)
			} else if n > 0 {
				logger.Debug("removed expired oauth states", "count", n)
			}
			replayGuard = pgGuard
		}
		logger.Info("redis not configured; using postgres for locks, connect rate limiting disabled",
			"single_use_state", cfg.OAuthStateSingleUse)
	}

	// ===== OAuth clients =====
	googleClient := google.NewOAuthClient(google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Timeout:      cfg.OAuthHTTPTimeout,
	})
	if !cfg.GoogleConfigured() {
		logger.Warn("google oauth client credentials missing; google_calendar connect is unavailable")
	}

	// ===== Services =====
	authService := services.NewAuthService(auth.NewAdapter(cfg.SessionSecret))
	integrationService := services.NewIntegrationService(services.IntegrationServiceConfig{
		Store:       postgres.NewIntegrationStore(db),
		Cipher:      cipher,
		States:      states,
		Clients:     []driven.OAuthClient{googleClient},
		Lock:        lock,
		ReplayGuard: replayGuard,
		BaseURL:     cfg.BaseURL,
		StateTTL:    states.TTL(),
		Logger:      logger,
	})

	server := http.NewServer(
		http.Config{
			Host:               cfg.Host,
			Port:               cfg.Port,
			Version:            version,
			DashboardURL:       cfg.DashboardURL,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			Logger:             logger,
		},
		authService,
		integrationService,
		rateLimiter,
		db,
		redisPinger,
	)

	return server.Start(ctx)
}

// runIssueToken mints a session token for operators and local testing.
func runIssueToken(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	tenant := fs.String("tenant", "", "tenant ID (required)")
	user := fs.String("user", "", "user ID (required)")
	email := fs.String("email", "", "user email")
	role := fs.String("role", string(domain.RoleAdmin), "admin, member or viewer")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	authService := services.NewAuthService(auth.NewAdapter(cfg.SessionSecret))
	token, err := authService.IssueToken(context.Background(), domain.IssueTokenRequest{
		UserID:   *user,
		Email:    *email,
		Role:     domain.Role(*role),
		TenantID: *tenant,
		TTL:      *ttl,
	})
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	_, err = fmt.Fprintln(out, token)
	return err
}
