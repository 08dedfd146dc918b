package persistence

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

// fieldCipher encrypts/decrypts at-rest string fields (refresh tokens,
// API keys) with a single server-wide key, the way the teacher's own
// config loads a symmetric secret for sensitive columns. A fresh
// random nonce is prepended to every ciphertext.
type fieldCipher struct {
	key [32]byte
}

// newFieldCipher derives a cipher from a raw secret; secrets shorter
// than 32 bytes are rejected rather than silently padded.
func newFieldCipher(secret []byte) (*fieldCipher, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("persistence: encryption key must be at least 32 bytes, got %d", len(secret))
	}
	var key [32]byte
	copy(key[:], secret[:32])
	return &fieldCipher{key: key}, nil
}

func (c *fieldCipher) encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("persistence: generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &c.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *fieldCipher) decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("persistence: decode ciphertext: %w", err)
	}
	if len(raw) < 24 {
		return "", fmt.Errorf("persistence: ciphertext too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &c.key)
	if !ok {
		return "", fmt.Errorf("persistence: decrypt failed, wrong key or tampered data")
	}
	return string(plain), nil
}
