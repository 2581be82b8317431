// Package jwtxtest mints tokens and serves key sets the way an identity
// provider would, for tests of code that verifies tokens.
package jwtxtest

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/aussiebroadwan/bouncer/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
)

// Signer holds a private key and signs tokens with a fixed kid.
type Signer struct {
	kid    string
	method jwt.SigningMethod
	key    crypto.Signer
	jwk    jwtx.JWK
}

// NewRS256 generates a 2048 bit RSA signer.
func NewRS256(kid string) (*Signer, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("jwtxtest: generate RSA key: %w", err)
	}
	return &Signer{
		kid:    kid,
		method: jwt.SigningMethodRS256,
		key:    key,
		jwk:    jwtx.NewRSAJWK(kid, "sig", "RS256", &key.PublicKey),
	}, nil
}

// NewES256 generates a P-256 ECDSA signer.
func NewES256(kid string) (*Signer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtxtest: generate ECDSA key: %w", err)
	}
	return &Signer{
		kid:    kid,
		method: jwt.SigningMethodES256,
		key:    key,
		jwk:    jwtx.NewECJWK(kid, "sig", "ES256", &key.PublicKey),
	}, nil
}

// NewEdDSA generates an Ed25519 signer.
func NewEdDSA(kid string) (*Signer, error) {
	pub, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtxtest: generate Ed25519 key: %w", err)
	}
	return &Signer{
		kid:    kid,
		method: jwt.SigningMethodEdDSA,
		key:    key,
		jwk:    jwtx.NewEd25519JWK(kid, "sig", "EdDSA", pub),
	}, nil
}

func (s *Signer) KID() string { return s.kid }
func (s *Signer) Alg() string { return s.method.Alg() }

// PublicJWK returns the JWK to publish for this signer.
func (s *Signer) PublicJWK() jwtx.JWK { return s.jwk }

// Sign signs claims with the signer's key and kid.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	return s.SignWithHeader(claims, nil)
}

// SignWithHeader signs claims, then applies header overrides. A nil value
// deletes the header, which is how tests produce tokens without a kid.
func (s *Signer) SignWithHeader(claims jwt.Claims, header map[string]any) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	for k, v := range header {
		if v == nil {
			delete(t.Header, k)
			continue
		}
		t.Header[k] = v
	}
	return t.SignedString(s.key)
}

// Claims returns a Keycloak shaped payload valid for ttl from now, with the
// given realm roles. Tests tweak the map before signing.
func Claims(issuer, subject string, audience []string, roles []string, ttl time.Duration) jwt.MapClaims {
	now := time.Now()
	aud := make([]any, 0, len(audience))
	for _, a := range audience {
		aud = append(aud, a)
	}
	rs := make([]any, 0, len(roles))
	for _, r := range roles {
		rs = append(rs, r)
	}

	return jwt.MapClaims{
		"iss":                issuer,
		"sub":                subject,
		"aud":                aud,
		"iat":                now.Unix(),
		"exp":                now.Add(ttl).Unix(),
		"typ":                "Bearer",
		"azp":                "bouncer-test",
		"preferred_username": subject,
		"scope":              "openid profile email",
		"realm_access": map[string]any{
			"roles": rs,
		},
	}
}
