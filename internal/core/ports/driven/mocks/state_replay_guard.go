package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
)

var _ driven.StateReplayGuard = (*MockStateReplayGuard)(nil)

// MockStateReplayGuard remembers consumed states in memory.
type MockStateReplayGuard struct {
	mu   sync.Mutex
	seen map[string]bool
}

// NewMockStateReplayGuard creates a new MockStateReplayGuard
func NewMockStateReplayGuard() *MockStateReplayGuard {
	return &MockStateReplayGuard{seen: make(map[string]bool)}
}

func (m *MockStateReplayGuard) Consume(ctx context.Context, state string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[state] {
		return false, nil
	}
	m.seen[state] = true
	return true, nil
}
