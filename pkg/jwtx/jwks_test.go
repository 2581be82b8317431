package jwtx

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWK_PublicKey_RSA(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwk := NewRSAJWK("test-key-id", "sig", "RS256", &privateKey.PublicKey)
	require.Equal(t, "RSA", jwk.Kty)

	pub, err := jwk.PublicKey()
	require.NoError(t, err)

	rsaPubKey, ok := pub.(*rsa.PublicKey)
	require.True(t, ok, "key should be an RSA public key")
	require.Equal(t, privateKey.PublicKey.N, rsaPubKey.N)
	require.Equal(t, privateKey.PublicKey.E, rsaPubKey.E)
}

func TestJWK_PublicKey_Ed25519(t *testing.T) {
	publicKey, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	jwk := NewEd25519JWK("test-key-id", "sig", "EdDSA", publicKey)

	pub, err := jwk.PublicKey()
	require.NoError(t, err)

	edPubKey, ok := pub.(ed25519.PublicKey)
	require.True(t, ok, "key should be an Ed25519 public key")
	require.Equal(t, publicKey, edPubKey)
}

func TestJWK_PublicKey_UnsupportedKeyType(t *testing.T) {
	jwk := JWK{
		Kty: "UNSUPPORTED",
		Kid: "test-key",
	}

	_, err := jwk.PublicKey()
	require.ErrorIs(t, err, errUnsupportedKey)
}

func TestJWK_PublicKey_InvalidBase64(t *testing.T) {
	jwk := JWK{
		Kty: "RSA",
		Kid: "test-key",
		N:   "!!!invalid-base64!!!",
		E:   "AQAB",
	}

	_, err := jwk.PublicKey()
	require.Error(t, err)
}

func TestJWK_PublicKey_ECCurves(t *testing.T) {
	for _, curve := range []elliptic.Curve{elliptic.P256(), elliptic.P384(), elliptic.P521()} {
		t.Run(curve.Params().Name, func(t *testing.T) {
			privateKey, err := ecdsa.GenerateKey(curve, rand.Reader)
			require.NoError(t, err)

			jwk := NewECJWK("ec", "sig", "", &privateKey.PublicKey)
			require.Equal(t, curve.Params().Name, jwk.Crv)

			pub, err := jwk.PublicKey()
			require.NoError(t, err)
			require.True(t, privateKey.PublicKey.Equal(pub))
		})
	}
}

func TestJWK_PublicKey_RejectsOffCurvePoint(t *testing.T) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	jwk := NewECJWK("ec", "sig", "ES256", &privateKey.PublicKey)
	jwk.Y = jwk.X

	_, err = jwk.PublicKey()
	require.Error(t, err)
}

func TestParseJWKS(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	now := time.Now()
	set := JWKS{Keys: []JWK{
		NewRSAJWK("sig-rsa", "sig", "RS256", &rsaKey.PublicKey),
		// Keycloak publishes an RSA-OAEP encryption key next to the signing key
		NewRSAJWK("enc-rsa", "enc", "RSA-OAEP", &rsaKey.PublicKey),
		NewEd25519JWK("sig-ed", "", "EdDSA", edPub),
		{Kty: "oct", Kid: "hmac"},
		NewRSAJWK("", "sig", "RS256", &rsaKey.PublicKey),
	}}

	keys, skipped := ParseJWKS(set, now)

	require.Len(t, keys, 2)
	require.Contains(t, keys, "sig-rsa")
	require.Contains(t, keys, "sig-ed")
	require.ElementsMatch(t, []string{"enc-rsa", "hmac", ""}, skipped)

	sk := keys["sig-rsa"]
	require.Equal(t, "RS256", sk.Algorithm)
	require.Equal(t, now, sk.FetchedAt)
	_, ok := sk.Public.(*rsa.PublicKey)
	require.True(t, ok)
}

func TestKeySet_Fresh(t *testing.T) {
	ks := NewKeySet()
	now := time.Now()

	// Never populated is never fresh
	require.False(t, ks.Fresh(now, time.Hour))
	require.False(t, ks.IsReady())

	ks.Replace(map[string]SigningKey{"a": {KID: "a"}}, now)
	require.True(t, ks.Fresh(now.Add(59*time.Minute), time.Hour))
	require.False(t, ks.Fresh(now.Add(time.Hour), time.Hour))
	require.True(t, ks.IsReady())

	// Replace drops keys that aren't in the new set
	ks.Replace(map[string]SigningKey{"b": {KID: "b"}}, now)
	_, ok := ks.Get("a")
	require.False(t, ok)
	require.Len(t, ks.Snapshot(), 1)
}
