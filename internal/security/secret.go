package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// GenerateSecret returns n random bytes from crypto/rand encoded as unpadded
// base64url. Used for token secrets, domain verification tokens, magic-link
// codes, and recovery codes. n must be at least 16 (128 bits of entropy).
func GenerateSecret(n int) (string, error) {
	if n < 16 {
		n = 16
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DigestSecret returns the hex-encoded SHA-256 digest of secret. Only the
// digest is ever stored or compared; the plaintext is returned to the caller
// once at generation time and never retrievable again.
func DigestSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// DigestEqual compares the digest of the presented secret against the stored
// digest in constant time.
func DigestEqual(presented, storedDigest string) bool {
	d := DigestSecret(presented)
	return subtle.ConstantTimeCompare([]byte(d), []byte(storedDigest)) == 1
}
