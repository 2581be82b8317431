package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for an API protected by bouncer.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a new API client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// AuthenticateWithPassword creates a session for a user using the resource
// owner password grant.
func (c *SDKClient) AuthenticateWithPassword(
	ctx context.Context,
	tokens *TokenClient,
	username, password string,
) (*Session, error) {
	tokenResp, err := tokens.PasswordGrant(ctx, username, password)
	if err != nil {
		return nil, err
	}

	return newSession(c, tokens, tokenResp), nil
}

// AuthenticateWithClientCredentials creates a session for the token client
// itself. This is for machine-to-machine (M2M) authentication.
func (c *SDKClient) AuthenticateWithClientCredentials(
	ctx context.Context,
	tokens *TokenClient,
) (*Session, error) {
	tokenResp, err := tokens.ClientCredentialsGrant(ctx)
	if err != nil {
		return nil, err
	}

	return newSession(c, tokens, tokenResp), nil
}

// NewSessionFromTokens creates an authenticated session from existing tokens.
// tokens may be nil, in which case the session cannot refresh.
func (c *SDKClient) NewSessionFromTokens(tokens *TokenClient, accessToken, refreshToken string, expiresIn int) *Session {
	return newSession(c, tokens, &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	})
}
