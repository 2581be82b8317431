package jwtx

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultClockSkew is the tolerance applied to exp and nbf.
const DefaultClockSkew = 30 * time.Second

// DefaultAllowedAlgorithms is what Keycloak signs access tokens with out of
// the box.
var DefaultAllowedAlgorithms = []string{"RS256"}

// Asymmetric algorithms a Verifier can be configured with. Symmetric (HS*)
// and "none" are never accepted: the resource server only holds public keys.
var supportedAlgorithms = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
}

// VerifierOptions captures what a token must satisfy.
type VerifierOptions struct {
	// Issuer the token must have (claims.iss). Empty means "don't care".
	Issuer string

	// Audience values, any one of which the token must contain (claims.aud).
	// Empty means "don't care".
	Audience []string

	// AllowedAlgorithms is the header "alg" allow-list. Defaults to RS256.
	AllowedAlgorithms []string

	// ClockSkew allows small clock skew when validating exp/nbf.
	ClockSkew time.Duration

	// Now overrides the clock, tests only.
	Now func() time.Time
}

// Verifier validates access tokens against keys from a KeySource.
//
// Checks run in a fixed order and the first failure is returned: algorithm
// allow-list, key lookup, signature, expiry, issuer, audience.
type Verifier struct {
	keys    KeySource
	opts    VerifierOptions
	parser  *jwt.Parser
	allowed map[string]struct{}
}

// NewVerifier builds a Verifier. It fails if the allow-list names an
// algorithm that isn't an asymmetric JWS algorithm.
func NewVerifier(keys KeySource, opts VerifierOptions) (*Verifier, error) {
	if keys == nil {
		return nil, errors.New("jwtx: key source is required")
	}
	if len(opts.AllowedAlgorithms) == 0 {
		opts.AllowedAlgorithms = DefaultAllowedAlgorithms
	}
	if opts.ClockSkew < 0 {
		return nil, errors.New("jwtx: clock skew must not be negative")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	allowed := make(map[string]struct{}, len(opts.AllowedAlgorithms))
	for _, alg := range opts.AllowedAlgorithms {
		alg = strings.TrimSpace(alg)
		if !slices.Contains(supportedAlgorithms, alg) {
			return nil, fmt.Errorf("jwtx: algorithm %q cannot be allowed", alg)
		}
		allowed[alg] = struct{}{}
	}

	return &Verifier{
		keys:    keys,
		opts:    opts,
		parser:  jwt.NewParser(jwt.WithoutClaimsValidation()),
		allowed: allowed,
	}, nil
}

// Verify validates the token against the configured issuer and audience.
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	return v.VerifyWith(ctx, token, v.opts.Issuer, v.opts.Audience)
}

// VerifyWith validates the token against an explicit issuer and audience,
// overriding the configured ones.
func (v *Verifier) VerifyWith(ctx context.Context, tokenStr, issuer string, audience []string) (*Claims, error) {
	if strings.Count(tokenStr, ".") != 2 {
		return nil, fmt.Errorf("%w: expected three segments", ErrMalformed)
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		// Reject on the header alone before any key lookup
		alg, _ := t.Header["alg"].(string)
		if _, ok := v.allowed[alg]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrAlgNotAllowed, alg)
		}

		// Need the kid to know which key to use
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid", ErrMalformed)
		}

		sk, err := v.keys.Key(ctx, kid)
		if err != nil {
			return nil, err
		}

		// A key published for one algorithm must not verify another
		if sk.Algorithm != "" && sk.Algorithm != alg {
			return nil, fmt.Errorf("%w: key %q is for %s, token uses %s", ErrSignatureInvalid, kid, sk.Algorithm, alg)
		}
		return sk.Public, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if err := claims.ValidateExpiry(v.opts.Now(), v.opts.ClockSkew); err != nil {
		if errors.Is(err, ErrMalformed) {
			return nil, fmt.Errorf("%w: missing exp claim", ErrMalformed)
		}
		return nil, err
	}
	if err := claims.ValidateIssuer(issuer); err != nil {
		return nil, fmt.Errorf("%w: got %q", err, claims.Issuer)
	}
	if err := claims.ValidateAudience(audience); err != nil {
		return nil, fmt.Errorf("%w: got %v", err, []string(claims.Audience))
	}

	return claims, nil
}

// classify maps a jwt parser error onto our sentinels, keeping the original
// chain for logs.
func classify(err error) error {
	for _, ours := range []error{
		ErrMalformed,
		ErrAlgNotAllowed,
		ErrSignatureInvalid,
		ErrProviderUnavailable,
		ErrKeyNotFound,
	} {
		if errors.Is(err, ours) {
			return err
		}
	}

	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		// Unknown or missing alg, rejected by the parser before our keyfunc
		return fmt.Errorf("%w: %w", ErrAlgNotAllowed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}
