package authsdk

import "time"

// TokenResponse is returned by the realm's token endpoint.
type TokenResponse struct {
	// AccessToken is the JWT access token used to authenticate API requests
	AccessToken string `json:"access_token"`

	// RefreshToken is the refresh token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresIn is the lifetime in seconds of the access token
	ExpiresIn int `json:"expires_in"`

	// Scope is the space-delimited list of granted scopes
	Scope string `json:"scope,omitempty"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports the state of each dependency.
type HealthChecks struct {
	Database string `json:"database"`
	JWKS     string `json:"jwks"`
}

// ResourceMetadata is the RFC 9728 protected resource metadata.
type ResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
	SigningAlgValues       []string `json:"resource_signing_alg_values_supported,omitempty"`
	ResourceName           string   `json:"resource_name,omitempty"`
}

// UserInfo describes the caller.
type UserInfo struct {
	Subject     string    `json:"sub"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name,omitempty"`
	GivenName   string    `json:"givenName,omitempty"`
	FamilyName  string    `json:"familyName,omitempty"`
	Groups      []string  `json:"groups,omitempty"`
	Authorities []string  `json:"authorities"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Decision is one audited access decision.
type Decision struct {
	ID        string    `json:"id"`
	RequestID string    `json:"requestId,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Principal string    `json:"principal,omitempty"`
	Method    string    `json:"method"`
	Resource  string    `json:"resource"`
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason"`
	Rule      string    `json:"rule,omitempty"`
	Status    int       `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// DecisionList wraps a decision listing.
type DecisionList struct {
	Decisions []Decision `json:"decisions"`
}

// DecisionQuery filters ListDecisions. Zero fields are not sent.
type DecisionQuery struct {
	Subject string
	Allowed *bool
	Since   time.Time
	Limit   int
}
