package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/intakeline/intakeline-core/internal/core/domain"
	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
	"github.com/intakeline/intakeline-core/internal/core/ports/driving"
)

// Ensure integrationService implements IntegrationService
var _ driving.IntegrationService = (*integrationService)(nil)

const (
	defaultStateTTL   = 5 * time.Minute
	refreshLockTTL    = 30 * time.Second
	refreshLockPrefix = "integration-refresh"
)

// IntegrationServiceConfig holds the collaborators of the integration service.
type IntegrationServiceConfig struct {
	// Store persists encrypted credentials.
	Store driven.IntegrationStore

	// Cipher encrypts tokens before they reach the store.
	Cipher driven.TokenCipher

	// States signs and verifies OAuth state tokens.
	States driven.StateSigner

	// Clients are the OAuth clients, one per provider.
	Clients []driven.OAuthClient

	// Lock serializes refreshes of the same credential across instances. Optional.
	Lock driven.DistributedLock

	// RefreshLockTTL is the lease on a refresh lock; it is extended every half
	// TTL while the provider call runs. Defaults to 30 seconds.
	RefreshLockTTL time.Duration

	// ReplayGuard makes state tokens single-use. Optional.
	ReplayGuard driven.StateReplayGuard

	// BaseURL is the public URL of this service, used for OAuth redirect URIs.
	// Example: "https://api.intakeline.com"
	BaseURL string

	// StateTTL is how long a state token stays valid. Defaults to 5 minutes.
	StateTTL time.Duration

	Logger *slog.Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// integrationService implements the IntegrationService interface.
type integrationService struct {
	store       driven.IntegrationStore
	cipher      driven.TokenCipher
	states      driven.StateSigner
	clients     map[domain.ProviderType]driven.OAuthClient
	lock        driven.DistributedLock
	lockTTL     time.Duration
	replayGuard driven.StateReplayGuard
	baseURL     string
	stateTTL    time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewIntegrationService creates a new integration service.
func NewIntegrationService(cfg IntegrationServiceConfig) driving.IntegrationService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	stateTTL := cfg.StateTTL
	if stateTTL <= 0 {
		stateTTL = defaultStateTTL
	}
	lockTTL := cfg.RefreshLockTTL
	if lockTTL <= 0 {
		lockTTL = refreshLockTTL
	}

	clients := make(map[domain.ProviderType]driven.OAuthClient, len(cfg.Clients))
	for _, c := range cfg.Clients {
		clients[c.Provider()] = c
	}

	return &integrationService{
		store:       cfg.Store,
		cipher:      cfg.Cipher,
		states:      cfg.States,
		clients:     clients,
		lock:        cfg.Lock,
		lockTTL:     lockTTL,
		replayGuard: cfg.ReplayGuard,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		stateTTL:    stateTTL,
		logger:      logger.With("component", "integrations"),
		now:         now,
	}
}

// Connect starts an authorization flow and returns the consent screen URL.
func (s *integrationService) Connect(ctx context.Context, tenantID string, provider domain.ProviderType) (*driving.ConnectResponse, error) {
	if tenantID == "" {
		return nil, domain.ErrUnauthorized
	}

	client, err := s.client(provider)
	if err != nil {
		return nil, err
	}

	state, err := s.states.Generate(tenantID)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	return &driving.ConnectResponse{
		AuthorizationURL: client.BuildAuthorizationURL(state, s.redirectURI(provider)),
		ExpiresAt:        s.now().Add(s.stateTTL),
	}, nil
}

// HandleCallback verifies the state, exchanges the code and stores encrypted tokens.
// Nothing is persisted unless every step succeeds.
func (s *integrationService) HandleCallback(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
	log := s.logger.With("provider", req.Provider)

	client, clientErr := s.client(req.Provider)
	if errors.Is(clientErr, domain.ErrUnsupportedProvider) {
		return nil, driving.NewIntegrationError(domain.CallbackErrorUnsupported, clientErr)
	}

	if req.Error != "" {
		log.Info("provider denied authorization", "provider_error", req.Error)
		return nil, driving.NewIntegrationError(domain.CallbackErrorAccessDenied, fmt.Errorf("provider returned %q", req.Error))
	}

	state, ok := s.states.Verify(req.State)
	if !ok {
		log.Warn("rejected oauth callback with invalid state")
		return nil, driving.NewIntegrationError(domain.CallbackErrorInvalidState, domain.ErrInvalidState)
	}
	log = log.With("tenant_id", state.TenantID)

	if req.SessionTenantID == "" {
		return nil, driving.NewIntegrationError(domain.CallbackErrorUnauthorized, domain.ErrUnauthorized)
	}
	if req.SessionTenantID != state.TenantID {
		log.Warn("oauth state tenant does not match session tenant",
			"session_tenant_id", req.SessionTenantID)
		return nil, driving.NewIntegrationError(domain.CallbackErrorSessionMismatch, domain.ErrTenantMismatch)
	}

	if req.Code == "" {
		return nil, driving.NewIntegrationError(domain.CallbackErrorMissingCode, domain.ErrInvalidInput)
	}

	// Only a callback that could complete may burn the state.
	if s.replayGuard != nil {
		fresh, err := s.replayGuard.Consume(ctx, req.State, s.stateTTL)
		if err != nil {
			log.Error("state replay check failed", "error", err)
			return nil, driving.NewIntegrationError(domain.CallbackErrorCallbackFailed, err)
		}
		if !fresh {
			log.Warn("rejected replayed oauth state")
			return nil, driving.NewIntegrationError(domain.CallbackErrorInvalidState, domain.ErrInvalidState)
		}
	}

	if clientErr != nil {
		return nil, driving.NewIntegrationError(domain.CallbackErrorNotConfigured, clientErr)
	}

	token, err := client.ExchangeCode(ctx, req.Code, s.redirectURI(req.Provider))
	if err != nil {
		log.Error("authorization code exchange failed", "error", err)
		return nil, driving.NewIntegrationError(domain.CallbackErrorCallbackFailed, err)
	}

	email, err := client.FetchAccountEmail(ctx, token.AccessToken)
	if err != nil {
		log.Error("account email lookup failed", "error", err)
		return nil, driving.NewIntegrationError(domain.CallbackErrorCallbackFailed, err)
	}

	cred, err := s.sealCredential(state.TenantID, req.Provider, email, token)
	if err != nil {
		log.Error("failed to encrypt integration tokens", "error", err)
		return nil, driving.NewIntegrationError(domain.CallbackErrorCallbackFailed, err)
	}

	if err := s.store.Upsert(ctx, cred); err != nil {
		log.Error("failed to store integration", "error", err)
		return nil, driving.NewIntegrationError(domain.CallbackErrorCallbackFailed, err)
	}

	stored, err := s.store.Get(ctx, state.TenantID, req.Provider)
	if err != nil {
		stored = cred
	}

	log.Info("integration connected", "account_email", email, "has_refresh_token", token.RefreshToken != "")
	return &driving.CallbackResponse{Integration: stored.ToSummary()}, nil
}

// GetDecryptedCredential returns plaintext tokens, or nil when the integration
// is absent or its access token no longer decrypts.
func (s *integrationService) GetDecryptedCredential(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.DecryptedCredential, error) {
	cred, err := s.store.Get(ctx, tenantID, provider)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get integration: %w", err)
	}
	return s.decrypt(cred), nil
}

// AccessToken returns a usable access token, refreshing when inside the refresh window.
func (s *integrationService) AccessToken(ctx context.Context, tenantID string, provider domain.ProviderType) (string, error) {
	cred, err := s.store.Get(ctx, tenantID, provider)
	if err != nil {
		return "", err
	}

	plain := s.decrypt(cred)
	if plain == nil {
		return "", domain.ErrIntegrationBroken
	}

	if !cred.NeedsRefresh(s.now()) || plain.RefreshToken == "" {
		return plain.AccessToken, nil
	}

	if _, err := s.RefreshCredential(ctx, tenantID, provider); err != nil {
		// Another instance is refreshing; the current token is still usable until expiry
		if errors.Is(err, domain.ErrRefreshInProgress) && s.now().Before(*cred.TokenExpiresAt) {
			return plain.AccessToken, nil
		}
		return "", err
	}

	refreshed, err := s.GetDecryptedCredential(ctx, tenantID, provider)
	if err != nil {
		return "", err
	}
	if refreshed == nil {
		return "", domain.ErrIntegrationBroken
	}
	return refreshed.AccessToken, nil
}

// RefreshCredential exchanges the stored refresh token for a new access token.
func (s *integrationService) RefreshCredential(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.IntegrationSummary, error) {
	client, err := s.client(provider)
	if err != nil {
		return nil, err
	}

	log := s.logger.With("tenant_id", tenantID, "provider", provider)

	if s.lock != nil {
		name := refreshLockName(tenantID, provider)
		acquired, err := s.lock.Acquire(ctx, name, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire refresh lock: %w", err)
		}
		if !acquired {
			return nil, domain.ErrRefreshInProgress
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), name); err != nil {
				log.Warn("failed to release refresh lock", "error", err)
			}
		}()
		stop := s.keepLock(ctx, name, log)
		defer stop()
	}

	cred, err := s.store.Get(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}
	if cred.RefreshToken == nil {
		return nil, domain.ErrIntegrationBroken
	}
	refreshToken, ok := s.cipher.SafeDecrypt(*cred.RefreshToken)
	if !ok || refreshToken == "" {
		log.Warn("stored refresh token cannot be decrypted")
		return nil, domain.ErrIntegrationBroken
	}

	token, err := client.RefreshToken(ctx, refreshToken)
	if err != nil {
		log.Error("token refresh failed", "error", err)
		if _, incErr := s.store.IncrementSyncErrors(ctx, tenantID, provider); incErr != nil {
			log.Warn("failed to record sync error", "error", incErr)
		}
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	accessBlob, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	// Keep the stored refresh token unless the provider rotated it
	var refreshBlob *string
	if token.RefreshToken != "" {
		blob, err := s.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("encrypt refresh token: %w", err)
		}
		refreshBlob = &blob
	}

	if err := s.store.UpdateTokens(ctx, tenantID, provider, accessBlob, refreshBlob, token.ExpiresAt(s.now())); err != nil {
		return nil, fmt.Errorf("update tokens: %w", err)
	}

	updated, err := s.store.Get(ctx, tenantID, provider)
	if err != nil {
		return nil, err
	}

	log.Info("integration tokens refreshed", "rotated_refresh_token", refreshBlob != nil)
	return updated.ToSummary(), nil
}

// keepLock extends a held refresh lock every half TTL until stop is called,
// so a slow provider response cannot let a second instance start the same refresh.
func (s *integrationService) keepLock(ctx context.Context, name string, log *slog.Logger) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.lockTTL / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.lock.Extend(ctx, name, s.lockTTL); err != nil {
					if ctx.Err() == nil {
						log.Warn("failed to extend refresh lock", "error", err)
					}
					return
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// List returns the tenant's integrations without token material.
func (s *integrationService) List(ctx context.Context, tenantID string) ([]*domain.IntegrationSummary, error) {
	creds, err := s.store.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}

	summaries := make([]*domain.IntegrationSummary, 0, len(creds))
	for _, c := range creds {
		summaries = append(summaries, c.ToSummary())
	}
	return summaries, nil
}

// Disconnect deletes the integration and its encrypted tokens.
func (s *integrationService) Disconnect(ctx context.Context, tenantID string, provider domain.ProviderType) error {
	if _, err := domain.ParseProviderType(string(provider)); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, tenantID, provider); err != nil {
		return err
	}
	s.logger.Info("integration disconnected", "tenant_id", tenantID, "provider", provider)
	return nil
}

// RecordSyncFailure counts a provider API failure against the integration.
func (s *integrationService) RecordSyncFailure(ctx context.Context, tenantID string, provider domain.ProviderType) (int, error) {
	count, err := s.store.IncrementSyncErrors(ctx, tenantID, provider)
	if err != nil {
		return 0, err
	}
	s.logger.Warn("integration sync failure recorded",
		"tenant_id", tenantID, "provider", provider, "sync_errors", count)
	return count, nil
}

// client resolves a configured OAuth client for the provider.
// The returned client is non-nil for ErrProviderNotConfigured.
func (s *integrationService) client(provider domain.ProviderType) (driven.OAuthClient, error) {
	if _, err := domain.ParseProviderType(string(provider)); err != nil {
		return nil, err
	}
	client, ok := s.clients[provider]
	if !ok {
		return nil, domain.ErrProviderNotConfigured
	}
	if !client.IsConfigured() {
		return client, domain.ErrProviderNotConfigured
	}
	return client, nil
}

func (s *integrationService) redirectURI(provider domain.ProviderType) string {
	return s.baseURL + "/api/v1/integrations/" + string(provider) + "/callback"
}

func (s *integrationService) sealCredential(tenantID string, provider domain.ProviderType, email string, token *domain.OAuthToken) (*domain.IntegrationCredential, error) {
	accessBlob, err := s.cipher.Encrypt(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	var refreshBlob *string
	if token.RefreshToken != "" {
		blob, err := s.cipher.Encrypt(token.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("encrypt refresh token: %w", err)
		}
		refreshBlob = &blob
	}

	now := s.now()
	return &domain.IntegrationCredential{
		ID:             "intg_" + generateID(),
		TenantID:       tenantID,
		Provider:       provider,
		AccountEmail:   email,
		AccessToken:    accessBlob,
		RefreshToken:   refreshBlob,
		TokenExpiresAt: token.ExpiresAt(now),
		Scopes:         strings.Fields(token.Scope),
		SyncErrors:     0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// decrypt returns nil when the access token cannot be recovered.
// A broken refresh token degrades to an empty one.
func (s *integrationService) decrypt(cred *domain.IntegrationCredential) *domain.DecryptedCredential {
	access, ok := s.cipher.SafeDecrypt(cred.AccessToken)
	if !ok {
		s.logger.Warn("integration access token cannot be decrypted",
			"tenant_id", cred.TenantID, "provider", cred.Provider)
		return nil
	}

	var refresh string
	if cred.RefreshToken != nil {
		refresh, _ = s.cipher.SafeDecrypt(*cred.RefreshToken)
	}

	return &domain.DecryptedCredential{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    cred.TokenExpiresAt,
	}
}

func refreshLockName(tenantID string, provider domain.ProviderType) string {
	return refreshLockPrefix + ":" + tenantID + ":" + string(provider)
}
