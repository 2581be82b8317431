//go:build e2e

package keycloak_test

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/aussiebroadwan/bouncer/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestAnonymousAccess verifies public routes work without a token and
// protected ones challenge the caller.
func TestAnonymousAccess(t *testing.T) {
	baseURL := setupBouncer(t, nil)

	t.Run("public route", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/api/public/info")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, "Hello, guest", body.Message)
	})

	t.Run("protected route", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/api/secure/user-info")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		challenge := authsdk.ParseChallenge(resp.Header.Get("WWW-Authenticate"))
		require.Equal(t, realmName, challenge.Realm)
		require.Equal(t, baseURL+"/.well-known/oauth-protected-resource", challenge.ResourceMetadata)
		require.Empty(t, challenge.Error)
	})
}

// TestMemberAccess verifies a forum member's Keycloak token maps to
// ROLE_USER and is held to it.
func TestMemberAccess(t *testing.T) {
	baseURL := setupBouncer(t, nil)
	client := authsdk.NewSDKClient(baseURL)
	session := login(t, client, memberUsername, memberPassword)

	info, err := session.GetUserInfo(t.Context())
	require.NoError(t, err)

	require.Equal(t, memberUsername, info.Username)
	require.Equal(t, "alice@example.com", info.Email)
	require.Equal(t, "Alice", info.GivenName)
	require.Equal(t, "Member", info.FamilyName)
	require.Equal(t, []string{"ROLE_USER"}, info.Authorities)
	require.NotEmpty(t, info.Subject)

	t.Run("admin-only route is forbidden", func(t *testing.T) {
		resp, err := session.Do(t.Context(), http.MethodGet, "/api/secure/admin-only")
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Contains(t, resp.Header.Get("WWW-Authenticate"), `error="insufficient_scope"`)
	})

	t.Run("audit log is forbidden", func(t *testing.T) {
		_, err := session.ListDecisions(t.Context(), authsdk.DecisionQuery{})
		requireAPIError(t, err, http.StatusForbidden, authsdk.ErrorCodeInsufficientScope)
	})

	t.Run("public route greets the member", func(t *testing.T) {
		resp, err := session.Do(t.Context(), http.MethodGet, "/api/public/info")
		require.NoError(t, err)
		defer resp.Body.Close()

		var body struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Equal(t, "Hello, "+memberUsername, body.Message)
	})
}

// TestOnboardingConfined verifies a user still onboarding cannot reach the
// rest of the API.
func TestOnboardingConfined(t *testing.T) {
	baseURL := setupBouncer(t, nil)
	client := authsdk.NewSDKClient(baseURL)
	session := login(t, client, onboardingUsername, onboardingPassword)

	_, err := session.GetUserInfo(t.Context())
	requireAPIError(t, err, http.StatusForbidden, authsdk.ErrorCodeInsufficientScope)
}

// TestRejectsBadTokens verifies tokens that Keycloak did not issue for this
// API are rejected.
func TestRejectsBadTokens(t *testing.T) {
	baseURL := setupBouncer(t, nil)
	client := authsdk.NewSDKClient(baseURL)

	t.Run("token for another client", func(t *testing.T) {
		tokens := authsdk.NewTokenClient(issuer, otherClientID, "")
		session, err := client.AuthenticateWithPassword(t.Context(), tokens, memberUsername, memberPassword)
		require.NoError(t, err)

		_, err = session.GetUserInfo(t.Context())
		apiErr := requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
		require.Equal(t, "audience mismatch", apiErr.Challenge.ErrorDescription)
	})

	t.Run("tampered signature", func(t *testing.T) {
		good := login(t, client, memberUsername, memberPassword).AccessToken()
		tampered := tamper(good)

		_, err := client.NewSessionFromTokens(nil, tampered, "", 300).GetUserInfo(t.Context())
		requireAPIError(t, err, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := client.NewSessionFromTokens(nil, "not-a-jwt", "", 300).GetUserInfo(t.Context())
		requireAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest)
	})

	t.Run("wrong password never reaches the API", func(t *testing.T) {
		tokens := authsdk.NewTokenClient(issuer, webClientID, "")
		_, err := client.AuthenticateWithPassword(t.Context(), tokens, memberUsername, "wrong")

		var oauthErr *authsdk.OAuth2Error
		require.ErrorAs(t, err, &oauthErr)
		require.Equal(t, authsdk.ErrorCodeInvalidGrant, oauthErr.Code)
	})
}

// tamper flips a character in the middle of the signature segment.
func tamper(token string) string {
	i := strings.LastIndex(token, ".") + 10
	b := []byte(token)
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}
