package security

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(4) // min cost to keep tests fast
	digest, err := h.Hash([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if digest == "" || digest == "correct horse battery staple" {
		t.Fatal("digest empty or equal to plaintext")
	}
	if err := h.Compare(digest, []byte("correct horse battery staple")); err != nil {
		t.Errorf("Compare matching: %v", err)
	}
	if err := h.Compare(digest, []byte("wrong")); err == nil {
		t.Error("Compare mismatched password: want error, got nil")
	}
}

func TestGenerateSecret_UniqueAndMinimumEntropy(t *testing.T) {
	a, err := GenerateSecret(32)
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	b, err := GenerateSecret(32)
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if a == b {
		t.Error("two generated secrets are equal")
	}
	// n below 16 is raised to 16 bytes (128 bits).
	small, err := GenerateSecret(4)
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	if len(small) < 21 { // base64url of 16 bytes is 22 chars
		t.Errorf("secret too short: %d chars", len(small))
	}
}

func TestDigestEqual(t *testing.T) {
	secret := "s3cret-token-value"
	digest := DigestSecret(secret)
	if !DigestEqual(secret, digest) {
		t.Error("DigestEqual matching secret: want true")
	}
	if DigestEqual("other", digest) {
		t.Error("DigestEqual wrong secret: want false")
	}
	if DigestEqual("", digest) {
		t.Error("DigestEqual empty secret: want false")
	}
}

func TestEncryptor_RoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	e, err := NewEncryptor(key)
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	ct, err := e.Encrypt([]byte("totp-seed-material"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if strings.Contains(ct, "totp-seed-material") {
		t.Fatal("ciphertext contains plaintext")
	}
	pt, err := e.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(pt) != "totp-seed-material" {
		t.Errorf("Decrypt = %q, want original plaintext", pt)
	}
}

func TestEncryptor_RejectsTamperedCiphertext(t *testing.T) {
	e, err := NewEncryptor(bytes.Repeat([]byte{0x01}, 32))
	if err != nil {
		t.Fatalf("NewEncryptor: %v", err)
	}
	ct, err := e.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	tampered := "A" + ct[1:]
	if _, err := e.Decrypt(tampered); err == nil {
		t.Error("Decrypt tampered ciphertext: want error, got nil")
	}
	if _, err := e.Decrypt("not-base64!!!"); err == nil {
		t.Error("Decrypt garbage: want error, got nil")
	}
}

func TestEncryptor_KeySize(t *testing.T) {
	if _, err := NewEncryptor([]byte("short")); err == nil {
		t.Error("NewEncryptor short key: want error, got nil")
	}
}

func TestLinkSigner_IssueAndValidate(t *testing.T) {
	s, err := NewTestLinkSigner()
	if err != nil {
		t.Fatalf("NewTestLinkSigner: %v", err)
	}
	tok, err := s.Issue(LinkPurposeInvitation, "alice@corp.example.com", "tenant-1", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := s.Validate(tok, LinkPurposeInvitation)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Email != "alice@corp.example.com" || claims.TenantID != "tenant-1" {
		t.Errorf("claims = %q/%q, want alice@corp.example.com/tenant-1", claims.Email, claims.TenantID)
	}
}

func TestLinkSigner_RejectsWrongPurpose(t *testing.T) {
	s, err := NewTestLinkSigner()
	if err != nil {
		t.Fatalf("NewTestLinkSigner: %v", err)
	}
	tok, err := s.Issue(LinkPurposeMagicLogin, "bob@example.com", "", time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := s.Validate(tok, LinkPurposeInvitation); err != ErrInvalidLink {
		t.Errorf("Validate wrong purpose: want ErrInvalidLink, got %v", err)
	}
}

func TestLinkSigner_RejectsExpired(t *testing.T) {
	s, err := NewTestLinkSigner()
	if err != nil {
		t.Fatalf("NewTestLinkSigner: %v", err)
	}
	tok, err := s.Issue(LinkPurposeMagicLogin, "bob@example.com", "", -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := s.Validate(tok, LinkPurposeMagicLogin); err != ErrInvalidLink {
		t.Errorf("Validate expired link: want ErrInvalidLink, got %v", err)
	}
}

func TestLinkSigner_RejectsGarbage(t *testing.T) {
	s, err := NewTestLinkSigner()
	if err != nil {
		t.Fatalf("NewTestLinkSigner: %v", err)
	}
	if _, err := s.Validate("not-a-jwt", LinkPurposeMagicLogin); err != ErrInvalidLink {
		t.Errorf("Validate garbage: want ErrInvalidLink, got %v", err)
	}
}

func TestNewLinkSignerFromPEM(t *testing.T) {
	s, err := NewLinkSignerFromPEM(testPrivateKeyPEM, testPublicKeyPEM, "iss", "aud")
	if err != nil {
		t.Fatalf("NewLinkSignerFromPEM: %v", err)
	}
	tok, err := s.Issue(LinkPurposeMagicLogin, "a@example.com", "", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := s.Validate(tok, LinkPurposeMagicLogin)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Email != "a@example.com" {
		t.Errorf("email = %q, want a@example.com", claims.Email)
	}

	if _, err := NewLinkSignerFromPEM("", testPublicKeyPEM, "iss", "aud"); err == nil {
		t.Error("expected error for empty private key")
	}
}
