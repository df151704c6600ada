package driving

import (
	"context"

	"github.com/intakeline/intakeline-core/internal/core/domain"
)

// AuthService validates and issues session tokens
type AuthService interface {
	// ValidateToken validates a JWT token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)

	// IssueToken mints a session token for operators and local testing
	IssueToken(ctx context.Context, req domain.IssueTokenRequest) (string, error)
}
