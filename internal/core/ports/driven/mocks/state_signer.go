package mocks

import (
	"fmt"
	"sync"
	"time"

	"github.com/intakeline/intakeline-core/internal/core/domain"
	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
)

var _ driven.StateSigner = (*MockStateSigner)(nil)

// MockStateSigner hands out sequential state tokens and remembers their tenant.
type MockStateSigner struct {
	mu     sync.Mutex
	seq    int
	issued map[string]string
}

// NewMockStateSigner creates a new MockStateSigner
func NewMockStateSigner() *MockStateSigner {
	return &MockStateSigner{issued: make(map[string]string)}
}

func (m *MockStateSigner) Generate(tenantID string) (string, error) {
	if tenantID == "" {
		return "", domain.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	token := fmt.Sprintf("state-%d", m.seq)
	m.issued[token] = tenantID
	return token, nil
}

func (m *MockStateSigner) Verify(token string) (*domain.OAuthState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tenantID, ok := m.issued[token]
	if !ok {
		return nil, false
	}
	return &domain.OAuthState{TenantID: tenantID, IssuedAt: time.Now()}, true
}
