package driven

import "github.com/intakeline/intakeline-core/internal/core/domain"

// AuthAdapter handles session token cryptography.
type AuthAdapter interface {
	GenerateToken(claims *domain.TokenClaims) (string, error)
	ParseToken(token string) (*domain.TokenClaims, error)
}
