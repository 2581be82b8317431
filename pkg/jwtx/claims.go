package jwtx

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the validated payload of a Keycloak access token. The typed
// fields cover what the resource server reads directly; Raw keeps the whole
// payload so role claims can be looked up by path.
type Claims struct {
	jwt.RegisteredClaims

	// Keycloak profile claims
	PreferredUsername string   `json:"preferred_username,omitempty"`
	Email             string   `json:"email,omitempty"`
	EmailVerified     bool     `json:"email_verified,omitempty"`
	Name              string   `json:"name,omitempty"`
	GivenName         string   `json:"given_name,omitempty"`
	FamilyName        string   `json:"family_name,omitempty"`
	Groups            []string `json:"groups,omitempty"`

	// Space delimited OAuth2 scopes, e.g. "openid profile email"
	Scope string `json:"scope,omitempty"`

	// Authorized party, the client the token was issued to
	AZP string `json:"azp,omitempty"`

	// Session ID
	SID string `json:"sid,omitempty"`

	Raw map[string]any `json:"-"`
}

// UnmarshalJSON decodes the typed fields and keeps a generic copy in Raw.
func (c *Claims) UnmarshalJSON(b []byte) error {
	type alias Claims
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*c = Claims(a)
	c.Raw = raw
	return nil
}

// Scopes splits the scope claim.
func (c *Claims) Scopes() []string {
	return strings.Fields(c.Scope)
}

// Lookup walks a dot separated path through the raw payload, e.g.
// "realm_access.roles" or "resource_access.my-client.roles".
func (c *Claims) Lookup(path string) (any, bool) {
	if path == "" || c.Raw == nil {
		return nil, false
	}

	var cur any = c.Raw
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Strings looks up path and coerces the value to a string list. Arrays keep
// their string members, a single string is split on whitespace like the
// scope claim. Anything else yields nil.
func (c *Claims) Strings(path string) []string {
	v, ok := c.Lookup(path)
	if !ok {
		return nil
	}

	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	case string:
		return strings.Fields(val)
	default:
		return nil
	}
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuerMismatch
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudienceMismatch
}

// ValidateExpiry checks exp and nbf against now, allowing leeway either way
// for clock skew. A token without exp is malformed.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrMalformed
	}

	// Check After Leeway
	if now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	// Check Before Leeway
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
