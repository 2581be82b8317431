/*
Package authsdk is a client SDK for APIs protected by bouncer.

# Overview

Tokens come from the Keycloak realm that bouncer trusts. The SDK fetches
them with a TokenClient and attaches them to API calls through a Session,
refreshing the access token shortly before it expires.

# SDKClient vs Session

  - SDKClient: unauthenticated calls (health, protected resource metadata)
    and the entry point for creating sessions
  - Session: authenticated calls with automatic token refresh

Create an SDKClient for the API and a TokenClient for the realm:

	client := authsdk.NewSDKClient("https://api.example.com")
	tokens := authsdk.NewTokenClient("https://sso.example.com/realms/forum", "forum-web", "")

	// Check service health
	health, err := client.GetReadiness(ctx)

	// Find out which realm issues tokens for the API
	meta, err := client.GetResourceMetadata(ctx)

	// Authenticate to create a session
	session, err := client.AuthenticateWithPassword(ctx, tokens, username, password)

Use a Session for authenticated calls:

	me, err := session.GetUserInfo(ctx)

	// Audit endpoints require ROLE_ADMIN
	decisions, err := session.ListDecisions(ctx, authsdk.DecisionQuery{Allowed: &denied})

# Authentication Flows

Password Grant:

	session, err := client.AuthenticateWithPassword(ctx, tokens, username, password)

Client Credentials Grant (M2M):

	session, err := client.AuthenticateWithClientCredentials(ctx, tokens)

Existing tokens:

	session := client.NewSessionFromTokens(tokens, accessToken, refreshToken, expiresIn)

# Error Handling

Token endpoint failures are returned as *OAuth2Error. API failures are
returned as *APIError, which carries the error envelope and, for 401 and
403 responses, the parsed WWW-Authenticate challenge:

	_, err := session.ListDecisions(ctx, authsdk.DecisionQuery{})
	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.Challenge.Error == "insufficient_scope" {
		// caller lacks the authority
	}
*/
package authsdk
