package domain

import (
	"errors"
	"testing"
	"time"
)

func TestAuthContextIsAdmin(t *testing.T) {
	tests := []struct {
		role     Role
		expected bool
	}{
		{RoleAdmin, true},
		{RoleMember, false},
		{RoleViewer, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			ctx := &AuthContext{Role: tt.role}
			if ctx.IsAdmin() != tt.expected {
				t.Errorf("expected IsAdmin() = %v for role %s", tt.expected, tt.role)
			}
		})
	}
}

func TestAuthContextCanConnect(t *testing.T) {
	tests := []struct {
		role     Role
		expected bool
	}{
		{RoleAdmin, true},
		{RoleMember, true},
		{RoleViewer, false},
		{Role("owner"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			ctx := &AuthContext{Role: tt.role}
			if ctx.CanConnect() != tt.expected {
				t.Errorf("expected CanConnect() = %v for role %s", tt.expected, tt.role)
			}
		})
	}
}

func TestIssueTokenRequestValidate(t *testing.T) {
	valid := IssueTokenRequest{
		UserID:   "user-1",
		Email:    "staff@example.com",
		Role:     RoleAdmin,
		TenantID: "tenant-1",
		TTL:      time.Hour,
	}

	tests := []struct {
		name    string
		mutate  func(r *IssueTokenRequest)
		wantErr bool
	}{
		{"valid", func(r *IssueTokenRequest) {}, false},
		{"missing user", func(r *IssueTokenRequest) { r.UserID = "" }, true},
		{"missing tenant", func(r *IssueTokenRequest) { r.TenantID = "" }, true},
		{"unknown role", func(r *IssueTokenRequest) { r.Role = "root" }, true},
		{"zero ttl", func(r *IssueTokenRequest) { r.TTL = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
