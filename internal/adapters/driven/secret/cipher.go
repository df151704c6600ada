// Package secret implements the cryptographic primitives that protect
// integration credentials: at-rest token encryption and OAuth state signing.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/crypto/scrypt"

	"github.com/intakeline/intakeline-core/internal/core/ports/driven"
)

// Ensure Cipher implements TokenCipher
var _ driven.TokenCipher = (*Cipher)(nil)

const (
	// ivSize and tagSize are fixed; the blob has no length header.
	ivSize  = 16
	tagSize = 16

	keySize = 32

	// kdfSalt is fixed so the same secret always yields the same key.
	kdfSalt = "intakeline/integration-tokens/v1"
	kdfN    = 32768
	kdfR    = 8
	kdfP    = 1
)

var (
	// ErrMissingSecret is returned when no encryption secret is configured.
	ErrMissingSecret = errors.New("token encryption secret is not set")

	// ErrMalformedBlob is returned when a blob is not base64 or is too short.
	ErrMalformedBlob = errors.New("encrypted blob is malformed")

	// ErrDecryptionFailed is returned when authentication fails (wrong key or tampered data).
	ErrDecryptionFailed = errors.New("failed to decrypt token blob")
)

// Cipher encrypts tokens with AES-256-GCM under a key stretched from the
// application secret with scrypt.
// The blob format is: base64(iv(16) || tag(16) || ciphertext(N))
type Cipher struct {
	aead   func() (cipher.AEAD, error)
	logger *slog.Logger
}

// NewCipher creates a cipher for the given secret.
// Key derivation runs once, on first use or on Warm.
func NewCipher(secret string, logger *slog.Logger) (*Cipher, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if logger == nil {
		logger = slog.Default()
	}

	pass := []byte(secret)
	return &Cipher{
		aead: sync.OnceValues(func() (cipher.AEAD, error) {
			key, err := scrypt.Key(pass, []byte(kdfSalt), kdfN, kdfR, kdfP, keySize)
			if err != nil {
				return nil, fmt.Errorf("derive key: %w", err)
			}

			block, err := aes.NewCipher(key)
			if err != nil {
				return nil, fmt.Errorf("create AES cipher: %w", err)
			}

			gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
			if err != nil {
				return nil, fmt.Errorf("create GCM: %w", err)
			}
			return gcm, nil
		}),
		logger: logger,
	}, nil
}

// Warm derives the key now so a broken configuration fails at startup.
func (c *Cipher) Warm() error {
	_, err := c.aead()
	return err
}

// Encrypt seals plaintext under a fresh random IV.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	gcm, err := c.aead()
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	// Seal appends the tag after the ciphertext
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, ivSize+tagSize+len(ct))
	blob = append(blob, iv...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt.
func (c *Cipher) Decrypt(blob string) (string, error) {
	gcm, err := c.aead()
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil || len(raw) < ivSize+tagSize {
		return "", ErrMalformedBlob
	}

	iv := raw[:ivSize]
	tag := raw[ivSize : ivSize+tagSize]
	ct := raw[ivSize+tagSize:]

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// SafeDecrypt is Decrypt that logs failures instead of returning them.
func (c *Cipher) SafeDecrypt(blob string) (string, bool) {
	plaintext, err := c.Decrypt(blob)
	if err != nil {
		c.logger.Warn("token blob could not be decrypted", "error", err, "blob_len", len(blob))
		return "", false
	}
	return plaintext, true
}
