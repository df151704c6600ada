package driven

// TokenCipher encrypts credential material for storage at rest.
type TokenCipher interface {
	// Encrypt seals plaintext into a base64 blob. Every call uses a fresh IV,
	// so equal plaintexts produce different blobs.
	Encrypt(plaintext string) (string, error)

	// Decrypt opens a blob produced by Encrypt.
	// Fails if the blob is truncated, tampered with, or sealed under another key.
	Decrypt(blob string) (string, error)

	// SafeDecrypt is Decrypt with failures reduced to ok == false.
	SafeDecrypt(blob string) (plaintext string, ok bool)
}
