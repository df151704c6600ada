package http

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/intakeline/intakeline-core/internal/core/domain"
	"github.com/intakeline/intakeline-core/internal/core/ports/driving"
)

// Mock services for testing

type mockAuthService struct {
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) IssueToken(ctx context.Context, req domain.IssueTokenRequest) (string, error) {
	return "", errors.New("not implemented")
}

// tokenAuth maps bearer tokens to sessions.
func tokenAuth(sessions map[string]*domain.AuthContext) *mockAuthService {
	return &mockAuthService{
		validateTokenFn: func(ctx context.Context, token string) (*domain.AuthContext, error) {
			if token == "expired" {
				return nil, domain.ErrTokenExpired
			}
			if s, ok := sessions[token]; ok {
				return s, nil
			}
			return nil, domain.ErrTokenInvalid
		},
	}
}

type mockIntegrationService struct {
	mock.Mock
}

var _ driving.IntegrationService = (*mockIntegrationService)(nil)

func (m *mockIntegrationService) Connect(ctx context.Context, tenantID string, provider domain.ProviderType) (*driving.ConnectResponse, error) {
	args := m.Called(ctx, tenantID, provider)
	resp, _ := args.Get(0).(*driving.ConnectResponse)
	return resp, args.Error(1)
}

func (m *mockIntegrationService) HandleCallback(ctx context.Context, req driving.CallbackRequest) (*driving.CallbackResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*driving.CallbackResponse)
	return resp, args.Error(1)
}

func (m *mockIntegrationService) GetDecryptedCredential(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.DecryptedCredential, error) {
	args := m.Called(ctx, tenantID, provider)
	cred, _ := args.Get(0).(*domain.DecryptedCredential)
	return cred, args.Error(1)
}

func (m *mockIntegrationService) AccessToken(ctx context.Context, tenantID string, provider domain.ProviderType) (string, error) {
	args := m.Called(ctx, tenantID, provider)
	return args.String(0), args.Error(1)
}

func (m *mockIntegrationService) RefreshCredential(ctx context.Context, tenantID string, provider domain.ProviderType) (*domain.IntegrationSummary, error) {
	args := m.Called(ctx, tenantID, provider)
	s, _ := args.Get(0).(*domain.IntegrationSummary)
	return s, args.Error(1)
}

func (m *mockIntegrationService) List(ctx context.Context, tenantID string) ([]*domain.IntegrationSummary, error) {
	args := m.Called(ctx, tenantID)
	list, _ := args.Get(0).([]*domain.IntegrationSummary)
	return list, args.Error(1)
}

func (m *mockIntegrationService) Disconnect(ctx context.Context, tenantID string, provider domain.ProviderType) error {
	return m.Called(ctx, tenantID, provider).Error(0)
}

func (m *mockIntegrationService) RecordSyncFailure(ctx context.Context, tenantID string, provider domain.ProviderType) (int, error) {
	args := m.Called(ctx, tenantID, provider)
	return args.Int(0), args.Error(1)
}

type mockRateLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (m *mockRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	m.keys = append(m.keys, key)
	return m.allowed, m.err
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}
