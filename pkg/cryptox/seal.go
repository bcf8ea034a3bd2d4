// Package cryptox seals short secrets for storage at rest. Grant codes stay
// valid for hours after issuance, so the guard store must not hold them in
// the clear. It must still return the original code on a repeat request,
// which rules out one-way hashing. Sealing is AES-256-GCM under a key
// derived from a deployment passphrase with argon2id.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

const (
	saltLength = 16
	keyLength  = 32

	// argon2id parameters. Sealing happens once per issuance, so the cost is
	// tuned for interactive latency rather than bulk hashing.
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// ErrSealCorrupt reports sealed data that cannot be decoded or authenticated,
// including data sealed under a different passphrase.
var ErrSealCorrupt = errors.New("cryptox: sealed data corrupt or wrong passphrase")

// Sealer seals and opens secrets under a deployment passphrase.
type Sealer struct {
	passphrase []byte
}

// NewSealer returns a Sealer for the given passphrase. The passphrase is the
// only long-lived key material; a fresh salt and nonce are drawn per seal.
func NewSealer(passphrase string) *Sealer {
	return &Sealer{passphrase: []byte(passphrase)}
}

// Seal encrypts plaintext and returns a base64url string carrying salt,
// nonce and ciphertext ([16-byte salt][12-byte nonce][ciphertext+tag]).
func (s *Sealer) Seal(plaintext string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate salt: %w", err)
	}

	gcm, err := s.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate nonce: %w", err)
	}

	out := append(salt, nonce...)
	out = gcm.Seal(out, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Open decrypts a string produced by Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrSealCorrupt
	}
	if len(raw) < saltLength {
		return "", ErrSealCorrupt
	}
	salt, rest := raw[:saltLength], raw[saltLength:]

	gcm, err := s.aead(salt)
	if err != nil {
		return "", err
	}
	if len(rest) < gcm.NonceSize() {
		return "", ErrSealCorrupt
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrSealCorrupt
	}
	return string(plaintext), nil
}

func (s *Sealer) aead(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonThreads, keyLength)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: failed to create GCM: %w", err)
	}
	return gcm, nil
}
