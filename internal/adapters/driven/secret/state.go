package secret

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/intakeline/intakeline-core/internal/core/domain"
	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
)

// Ensure StateSigner implements driven.StateSigner
var _ driven.StateSigner = (*StateSigner)(nil)

const (
	// DefaultStateTTL bounds how long a consent round trip may take.
	DefaultStateTTL = 5 * time.Minute

	// maxClockSkew tolerates instances whose clocks run slightly ahead.
	maxClockSkew = 30 * time.Second

	sigLen     = 16
	nonceBytes = 16
)

// ErrMissingStateSecret is returned when no state signing secret is configured.
var ErrMissingStateSecret = errors.New("oauth state secret is not set")

// StateSignerConfig configures a StateSigner.
type StateSignerConfig struct {
	Secret string

	// TTL defaults to DefaultStateTTL
	TTL time.Duration

	// Now overrides the clock in tests
	Now func() time.Time
}

// StateSigner issues HMAC-SHA256 signed OAuth state tokens.
// A token is base64url(JSON{tid, iat, nonce, sig}) where sig is the first
// 16 hex characters of HMAC(secret, tid|iat|nonce).
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// statePayload uses pointers so absent fields are distinguishable from zero values.
type statePayload struct {
	TenantID  *string `json:"tid"`
	IssuedAt  *int64  `json:"iat"`
	Nonce     *string `json:"nonce"`
	Signature *string `json:"sig"`
}

// NewStateSigner creates a state signer.
func NewStateSigner(cfg StateSignerConfig) (*StateSigner, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingStateSecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &StateSigner{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		now:    now,
	}, nil
}

// TTL returns how long issued tokens stay valid.
func (s *StateSigner) TTL() time.Duration {
	return s.ttl
}

// Generate issues a state token for the tenant.
func (s *StateSigner) Generate(tenantID string) (string, error) {
	if tenantID == "" {
		return "", domain.ErrInvalidInput
	}

	b := make([]byte, nonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(b)
	iat := s.now().UnixMilli()
	sig := s.sign(tenantID, iat, nonce)

	data, err := json.Marshal(statePayload{
		TenantID:  &tenantID,
		IssuedAt:  &iat,
		Nonce:     &nonce,
		Signature: &sig,
	})
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Verify checks the signature and age of a state token.
func (s *StateSigner) Verify(token string) (*domain.OAuthState, bool) {
	p, ok := decodeState(token)
	if !ok {
		return nil, false
	}

	expected := s.sign(*p.TenantID, *p.IssuedAt, *p.Nonce)
	if !hmac.Equal([]byte(expected), []byte(*p.Signature)) {
		return nil, false
	}

	issued := time.UnixMilli(*p.IssuedAt)
	now := s.now()
	if now.Sub(issued) > s.ttl || issued.Sub(now) > maxClockSkew {
		return nil, false
	}

	return &domain.OAuthState{
		TenantID: *p.TenantID,
		IssuedAt: issued,
		Nonce:    *p.Nonce,
	}, true
}

func (s *StateSigner) sign(tenantID string, iat int64, nonce string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(tenantID))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strconv.FormatInt(iat, 10)))
	mac.Write([]byte{'|'})
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))[:sigLen]
}

// decodeState parses a token strictly: every field present, nothing extra.
func decodeState(token string) (*statePayload, bool) {
	if token == "" {
		return nil, false
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var p statePayload
	if err := dec.Decode(&p); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}

	if p.TenantID == nil || p.IssuedAt == nil || p.Nonce == nil || p.Signature == nil {
		return nil, false
	}
	if *p.TenantID == "" || *p.Nonce == "" || len(*p.Signature) != sigLen {
		return nil, false
	}
	return &p, true
}
