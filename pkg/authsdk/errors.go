package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/bouncer/pkg/httpx"
)

// OAuth2 error codes (RFC 6749, RFC 6750).
const (
	ErrorCodeInvalidRequest    = "invalid_request"
	ErrorCodeInvalidClient     = "invalid_client"
	ErrorCodeInvalidGrant      = "invalid_grant"
	ErrorCodeInvalidToken      = "invalid_token"
	ErrorCodeInsufficientScope = "insufficient_scope"
)

// OAuth2Error is an error returned by the realm's token endpoint.
type OAuth2Error struct {
	// StatusCode is the HTTP status code for this error
	StatusCode int `json:"-"`

	// Code is the OAuth2 error code (e.g., "invalid_request", "invalid_grant")
	Code string `json:"error"`

	// Description is a human-readable description of the error
	Description string `json:"error_description"`
}

// Error implements the error interface.
func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func parseOAuth2Error(status int, body []byte) error {
	oauthErr := &OAuth2Error{StatusCode: status}
	if err := json.Unmarshal(body, oauthErr); err != nil || oauthErr.Code == "" {
		return fmt.Errorf("token request failed with status %d: %s", status, string(body))
	}
	return oauthErr
}

// Challenge is a parsed Bearer WWW-Authenticate header.
type Challenge struct {
	Realm            string
	ResourceMetadata string
	Error            string
	ErrorDescription string
}

// ParseChallenge parses a Bearer challenge. It returns the zero Challenge
// for other schemes.
func ParseChallenge(header string) Challenge {
	scheme, params, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return Challenge{}
	}

	var c Challenge
	for param := range strings.SplitSeq(params, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok {
			continue
		}
		value = strings.Trim(value, `"`)
		switch key {
		case "realm":
			c.Realm = value
		case "resource_metadata":
			c.ResourceMetadata = value
		case "error":
			c.Error = value
		case "error_description":
			c.ErrorDescription = value
		}
	}
	return c
}

// APIError is a non-success response from the protected API.
type APIError struct {
	httpx.ErrorResponse

	// Challenge is set on 401 and 403 responses.
	Challenge Challenge
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("api request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("%s (%d): %s", e.ErrorCode, e.StatusCode, e.Message)
}

// parseAPIError builds an *APIError from an error response. Bodies that are
// not an error envelope, such as a degraded health report, keep only the
// status.
func parseAPIError(resp *http.Response, body []byte) error {
	apiErr := &APIError{Challenge: ParseChallenge(resp.Header.Get("WWW-Authenticate"))}
	_ = json.Unmarshal(body, &apiErr.ErrorResponse)
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}
