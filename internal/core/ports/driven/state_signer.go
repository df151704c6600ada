package driven

import "github.com/intakeline/intakeline-core/internal/core/domain"

// StateSigner issues and verifies OAuth state tokens that bind a tenant to a
// single authorization flow without server-side storage.
type StateSigner interface {
	// Generate returns an opaque URL-safe token for the tenant.
	Generate(tenantID string) (string, error)

	// Verify returns the embedded state when the token is authentic and unexpired.
	// It never errors; every failure is ok == false.
	Verify(token string) (state *domain.OAuthState, ok bool)
}
