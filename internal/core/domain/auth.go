package domain

import "time"

// Role defines user permission level within a tenant
type Role string

const (
	RoleAdmin  Role = "admin"  // Connect and disconnect integrations
	RoleMember Role = "member" // Connect integrations, view status
	RoleViewer Role = "viewer" // View status only
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// AuthContext contains authenticated user info for request context
type AuthContext struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	TenantID  string `json:"tenant_id"`
	SessionID string `json:"session_id"`
}

// IsAdmin checks if the authenticated user is an admin
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanConnect checks if the user may start an integration connect flow
func (a *AuthContext) CanConnect() bool {
	return a.Role == RoleAdmin || a.Role == RoleMember
}

// TokenClaims represents the session JWT payload
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	TenantID  string `json:"tenant_id"`
	SessionID string `json:"session_id"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// IssueTokenRequest describes a session token minted for operators and local testing
type IssueTokenRequest struct {
	UserID   string        `json:"user_id"`
	Email    string        `json:"email"`
	Role     Role          `json:"role"`
	TenantID string        `json:"tenant_id"`
	TTL      time.Duration `json:"ttl"`
}

// Validate checks the request has everything a session needs
func (r *IssueTokenRequest) Validate() error {
	if r.UserID == "" || r.TenantID == "" {
		return ErrInvalidInput
	}
	if !r.Role.IsValid() {
		return ErrInvalidInput
	}
	if r.TTL <= 0 {
		return ErrInvalidInput
	}
	return nil
}
