package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidLink is returned when a signed link token is malformed, expired,
// signed with the wrong key, or carries the wrong purpose.
var ErrInvalidLink = errors.New("invalid signed link")

// LinkPurpose tags what a signed link is allowed to do. A link is only valid
// for the purpose it was issued with.
type LinkPurpose string

const (
	// LinkPurposeInvitation is a team-invitation registration link.
	LinkPurposeInvitation LinkPurpose = "invitation"
	// LinkPurposeMagicLogin is a passwordless login link.
	LinkPurposeMagicLogin LinkPurpose = "magic_login"
)

// LinkClaims holds the JWT claims of a signed link.
type LinkClaims struct {
	jwt.RegisteredClaims
	Purpose LinkPurpose `json:"purpose"`
	Email   string      `json:"email"`
	// TenantID is set on invitation links only.
	TenantID string `json:"tenant_id,omitempty"`
}

// LinkSigner issues and validates purpose-tagged signed links (invitation
// registration links and magic login links) using RS256 or ES256.
type LinkSigner struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
}

// NewLinkSigner returns a LinkSigner signing with the given private key
// (RSA or ECDSA). issuer and audience are set on claims and validated on parse.
func NewLinkSigner(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string) *LinkSigner {
	return &LinkSigner{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
	}
}

// NewLinkSignerFromPEM builds a LinkSigner from PEM-encoded keys, inline or
// file paths, as carried by LINK_PRIVATE_KEY / LINK_PUBLIC_KEY.
func NewLinkSignerFromPEM(privateKey, publicKey, issuer, audience string) (*LinkSigner, error) {
	priv, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	return NewLinkSigner(priv, pub, issuer, audience), nil
}

// Issue signs a link token for the given purpose, subject email, and optional
// tenant, valid for ttl.
func (s *LinkSigner) Issue(purpose LinkPurpose, email, tenantID string, ttl time.Duration) (string, error) {
	jti, err := generateJTI()
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	claims := LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   email,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Purpose:  purpose,
		Email:    email,
		TenantID: tenantID,
	}
	var method jwt.SigningMethod
	switch s.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidLink
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(s.privateKey)
}

// Validate parses the token and checks signature, expiry, issuer, audience,
// and purpose. Returns the claims or ErrInvalidLink.
func (s *LinkSigner) Validate(tokenString string, purpose LinkPurpose) (*LinkClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &LinkClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return s.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return s.publicKey, nil
		}
		return nil, ErrInvalidLink
	})
	if err != nil {
		return nil, ErrInvalidLink
	}
	claims, ok := token.Claims.(*LinkClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidLink
	}
	if claims.Issuer != s.issuer {
		return nil, ErrInvalidLink
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == s.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return nil, ErrInvalidLink
	}
	if claims.Purpose != purpose {
		return nil, ErrInvalidLink
	}
	return claims, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
