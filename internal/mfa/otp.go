package mfa

import (
	"crypto/rand"

	"identity-plane/internal/security"
)

const otpDigits = 6

// GenerateOTP returns a 6-digit numeric one-time code for email delivery.
// Rejection sampling keeps every digit uniform.
func GenerateOTP() (string, error) {
	out := make([]byte, 0, otpDigits)
	buf := make([]byte, otpDigits*2)
	for len(out) < otpDigits {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			out = append(out, '0'+b%10)
			if len(out) == otpDigits {
				break
			}
		}
	}
	return string(out), nil
}

// HashOTP returns the storable digest of a code. Plaintext codes are never
// persisted.
func HashOTP(code string) string {
	return security.DigestSecret(code)
}

// OTPEqual compares a presented code against a stored digest in constant
// time. An empty stored digest never matches.
func OTPEqual(code, storedDigest string) bool {
	if storedDigest == "" {
		return false
	}
	return security.DigestEqual(code, storedDigest)
}
