package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenClient requests tokens from a Keycloak realm's token endpoint.
type TokenClient struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	HTTPClient   *http.Client
}

// NewTokenClient creates a token client for the realm identified by issuer,
// e.g. https://sso.example.com/realms/forum. clientSecret is empty for
// public clients.
func NewTokenClient(issuer, clientID, clientSecret string) *TokenClient {
	return &TokenClient{
		TokenURL:     strings.TrimSuffix(issuer, "/") + "/protocol/openid-connect/token",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// PasswordGrant requests tokens for a user with the resource owner password
// grant. The realm client must have direct access grants enabled.
func (c *TokenClient) PasswordGrant(ctx context.Context, username, password string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}

	return c.requestToken(ctx, data)
}

// ClientCredentialsGrant requests an access token for the client itself.
// The client must be confidential (have a secret).
//
// Note: Keycloak does not return a refresh token for this grant, the
// session re-authenticates instead.
func (c *TokenClient) ClientCredentialsGrant(ctx context.Context) (*TokenResponse, error) {
	data := url.Values{
		"grant_type": {"client_credentials"},
	}

	return c.requestToken(ctx, data)
}

// RefreshGrant requests new tokens using a refresh token.
func (c *TokenClient) RefreshGrant(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}

	return c.requestToken(ctx, data)
}

func (c *TokenClient) requestToken(ctx context.Context, data url.Values) (*TokenResponse, error) {
	data.Set("client_id", c.ClientID)
	if c.ClientSecret != "" {
		data.Set("client_secret", c.ClientSecret)
	}
	if len(c.Scopes) > 0 {
		data.Set("scope", strings.Join(c.Scopes, " "))
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.TokenURL,
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseOAuth2Error(resp.StatusCode, bodyBytes)
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(bodyBytes, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &tokenResp, nil
}
