package auth

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const resetCipherInfo = "hr-identity password reset token v1"

// ResetCipher encrypts raw reset tokens so the database only holds ciphertext.
type ResetCipher struct {
	aead   cipher.AEAD
	random io.Reader
}

// NewResetCipher derives an XChaCha20-Poly1305 key from secret with HKDF-SHA256.
func NewResetCipher(secret string, random io.Reader) (*ResetCipher, error) {
	if secret == "" {
		return nil, fmt.Errorf("reset token key is empty")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(resetCipherInfo)), key); err != nil {
		return nil, fmt.Errorf("derive reset key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if random == nil {
		random = defaultGenerator.reader
	}
	return &ResetCipher{aead: aead, random: random}, nil
}

// Encrypt returns base64url(nonce || sealed raw token).
func (c *ResetCipher) Encrypt(raw string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(raw)+c.aead.Overhead())
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return "", fmt.Errorf("reset nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(raw), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (c *ResetCipher) Decrypt(token string) (string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("decode reset token: %w", err)
	}
	if len(data) < c.aead.NonceSize() {
		return "", fmt.Errorf("reset token too short")
	}
	nonce, sealed := data[:c.aead.NonceSize()], data[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("open reset token: %w", err)
	}
	return string(plain), nil
}
