package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requiredEnv() map[string]string {
	return map[string]string{
		"SESSION_SECRET":          "session",
		"STATE_SECRET":            "state",
		"TOKEN_ENCRYPTION_SECRET": "encryption",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(env.Options{Environment: requiredEnv()})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.OAuthHTTPTimeout)
	assert.Equal(t, 5*time.Minute, cfg.OAuthStateTTL)
	assert.False(t, cfg.OAuthStateSingleUse)
	assert.Equal(t, 20, cfg.ConnectRateLimitPerMinute)
	assert.Empty(t, cfg.RedisURL)
	assert.False(t, cfg.GoogleConfigured())
}

func TestLoad_Overrides(t *testing.T) {
	e := requiredEnv()
	e["BASE_URL"] = "https://api.intakeline.com/"
	e["DASHBOARD_URL"] = "https://app.intakeline.com/"
	e["REDIS_URL"] = "redis://localhost:6379/0"
	e["OAUTH_STATE_SINGLE_USE"] = "true"
	e["OAUTH_HTTP_TIMEOUT"] = "3s"
	e["CORS_ALLOWED_ORIGINS"] = "https://app.intakeline.com,http://localhost:3000"
	e["GOOGLE_CLIENT_ID"] = "client"
	e["GOOGLE_CLIENT_SECRET"] = "secret"
	e["LOG_FORMAT"] = "json"

	cfg, err := load(env.Options{Environment: e})
	require.NoError(t, err)

	assert.Equal(t, "https://api.intakeline.com", cfg.BaseURL)
	assert.Equal(t, "https://app.intakeline.com", cfg.DashboardURL)
	assert.True(t, cfg.OAuthStateSingleUse)
	assert.Equal(t, 3*time.Second, cfg.OAuthHTTPTimeout)
	assert.Equal(t, []string{"https://app.intakeline.com", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.GoogleConfigured())
}

func TestLoad_FromProcessEnv(t *testing.T) {
	for k, v := range requiredEnv() {
		t.Setenv(k, v)
	}
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantErr string
	}{
		{"missing session secret", func(e map[string]string) { delete(e, "SESSION_SECRET") }, "SESSION_SECRET"},
		{"missing state secret", func(e map[string]string) { delete(e, "STATE_SECRET") }, "STATE_SECRET"},
		{"missing encryption secret", func(e map[string]string) { delete(e, "TOKEN_ENCRYPTION_SECRET") }, "TOKEN_ENCRYPTION_SECRET"},
		{"bad log level", func(e map[string]string) { e["LOG_LEVEL"] = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(e map[string]string) { e["LOG_FORMAT"] = "xml" }, "LOG_FORMAT"},
		{"zero state ttl", func(e map[string]string) { e["OAUTH_STATE_TTL"] = "0s" }, "OAUTH_STATE_TTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := requiredEnv()
			tt.mutate(e)
			_, err := load(env.Options{Environment: e})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_SingleUseWithoutRedis(t *testing.T) {
	e := requiredEnv()
	e["OAUTH_STATE_SINGLE_USE"] = "true"

	cfg, err := load(env.Options{Environment: e})
	require.NoError(t, err)
	assert.True(t, cfg.OAuthStateSingleUse)
	assert.Empty(t, cfg.RedisURL)
}

func TestValidate_ReportsAllMissingSecrets(t *testing.T) {
	_, err := load(env.Options{Environment: map[string]string{}})
	require.Error(t, err)
	for _, key := range []string{"SESSION_SECRET", "STATE_SECRET", "TOKEN_ENCRYPTION_SECRET"} {
		assert.True(t, strings.Contains(err.Error(), key), "missing %s in %v", key, err)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
