package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// ErrInvalidCiphertext is returned when decryption fails (wrong key, truncated
// or tampered ciphertext).
var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Encryptor provides reversible AES-256-GCM encryption for secrets that must
// be read back in plaintext, such as TOTP seeds and SSO client secrets. One-way
// digests (DigestSecret) are preferred wherever the plaintext never needs to
// be recovered.
type Encryptor struct {
	aead cipher.AEAD
}

// NewEncryptor returns an Encryptor using the given 32-byte key.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != 32 {
		return nil, errors.New("encryption key must be 32 bytes")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Encryptor{aead: aead}, nil
}

// Encrypt seals plaintext and returns nonce||ciphertext, base64url-encoded.
func (e *Encryptor) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := e.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Returns ErrInvalidCiphertext on any decode or
// authentication failure.
func (e *Encryptor) Decrypt(encoded string) ([]byte, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	ns := e.aead.NonceSize()
	if len(sealed) < ns {
		return nil, ErrInvalidCiphertext
	}
	plaintext, err := e.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	return plaintext, nil
}
