package mocks

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
)

var _ driven.TokenCipher = (*MockTokenCipher)(nil)

// MockTokenCipher is a reversible, non-secret TokenCipher for testing.
// Blobs carry a sequence number so equal plaintexts never collide.
type MockTokenCipher struct {
	mu  sync.Mutex
	seq int

	// EncryptErr forces Encrypt to fail
	EncryptErr error
}

// NewMockTokenCipher creates a new MockTokenCipher
func NewMockTokenCipher() *MockTokenCipher {
	return &MockTokenCipher{}
}

func (m *MockTokenCipher) Encrypt(plaintext string) (string, error) {
	if m.EncryptErr != nil {
		return "", m.EncryptErr
	}
	m.mu.Lock()
	m.seq++
	n := m.seq
	m.mu.Unlock()
	return "mock:" + strconv.Itoa(n) + ":" + base64.StdEncoding.EncodeToString([]byte(plaintext)), nil
}

func (m *MockTokenCipher) Decrypt(blob string) (string, error) {
	parts := strings.SplitN(blob, ":", 3)
	if len(parts) != 3 || parts[0] != "mock" {
		return "", errors.New("mock cipher: malformed blob")
	}
	data, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", errors.New("mock cipher: malformed blob")
	}
	return string(data), nil
}

func (m *MockTokenCipher) SafeDecrypt(blob string) (string, bool) {
	plaintext, err := m.Decrypt(blob)
	if err != nil {
		return "", false
	}
	return plaintext, true
}
