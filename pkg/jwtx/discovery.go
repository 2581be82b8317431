package jwtx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OIDCDiscovery is the subset of the OpenID Provider Metadata we use.
type OIDCDiscovery struct {
	Issuer                           string   `json:"issuer"`
	JWKSURI                          string   `json:"jwks_uri"`
	TokenEndpoint                    string   `json:"token_endpoint,omitempty"`
	IntrospectionEndpoint            string   `json:"introspection_endpoint,omitempty"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported,omitempty"`
}

// DiscoveryURL returns the well-known metadata location for an issuer.
func DiscoveryURL(issuer string) string {
	return strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"
}

// Discover fetches the issuer's OpenID configuration. The advertised issuer
// has to match the one we asked about, otherwise the document is rejected.
func Discover(ctx context.Context, client *http.Client, issuer string) (*OIDCDiscovery, error) {
	if issuer == "" {
		return nil, errors.New("jwtx: issuer is required for discovery")
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, DiscoveryURL(issuer), nil)
	if err != nil {
		return nil, fmt.Errorf("jwtx: build discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: discovery: %w", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: discovery returned %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var doc OIDCDiscovery
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBytes)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("jwtx: decode discovery document: %w", err)
	}

	if strings.TrimSuffix(doc.Issuer, "/") != strings.TrimSuffix(issuer, "/") {
		return nil, fmt.Errorf("jwtx: discovery issuer %q does not match %q", doc.Issuer, issuer)
	}
	if doc.JWKSURI == "" {
		return nil, errors.New("jwtx: discovery document has no jwks_uri")
	}

	return &doc, nil
}
