package authsdk

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// refreshBuffer is how long before expiry the access token is renewed.
const refreshBuffer = 30 * time.Second

// Session represents an authenticated session with automatic token refresh.
// All Session methods automatically handle token expiration and refresh when needed.
type Session struct {
	client *SDKClient
	tokens *TokenClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// newSession creates a new authenticated session from a token response.
func newSession(client *SDKClient, tokens *TokenClient, tokenResp *TokenResponse) *Session {
	s := &Session{client: client, tokens: tokens}
	s.store(tokenResp)
	return s
}

func (s *Session) store(tokenResp *TokenResponse) {
	s.accessToken = tokenResp.AccessToken
	if tokenResp.RefreshToken != "" {
		s.refreshToken = tokenResp.RefreshToken
	}
	s.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - refreshBuffer)
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	// Token expired, need to refresh
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have refreshed)
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if s.tokens == nil {
		return "", fmt.Errorf("access token expired and no token client available")
	}

	var (
		tokenResp *TokenResponse
		err       error
	)
	if s.refreshToken != "" {
		tokenResp, err = s.tokens.RefreshGrant(ctx, s.refreshToken)
	} else {
		tokenResp, err = s.tokens.ClientCredentialsGrant(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}

	s.store(tokenResp)
	return s.accessToken, nil
}

// AccessToken returns the current access token without checking expiration.
// For most use cases, prefer using the Session methods which handle refresh automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}
