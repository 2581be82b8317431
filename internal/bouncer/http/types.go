package http

import "time"

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	// Status is "ok" or "degraded".
	Status  string `json:"status"`
	Uptime  string `json:"uptime,omitempty"`
	Version string `json:"version,omitempty"`

	// Checks is only set by /readyz.
	Checks *HealthChecks `json:"checks,omitempty"`
} //@name HealthResponse

// HealthChecks reports the state of each dependency.
type HealthChecks struct {
	Database string `json:"database"`
	JWKS     string `json:"jwks"`
} //@name HealthChecks

// ProtectedResourceMetadata is the RFC 9728 document telling clients which
// authorization server issues tokens for this API.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	BearerMethodsSupported []string `json:"bearer_methods_supported"`
	SigningAlgValues       []string `json:"resource_signing_alg_values_supported,omitempty"`
	ResourceName           string   `json:"resource_name,omitempty"`
} //@name ProtectedResourceMetadata

// UserInfoResponse describes the caller as the API sees them.
type UserInfoResponse struct {
	Subject     string    `json:"sub"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name,omitempty"`
	GivenName   string    `json:"givenName,omitempty"`
	FamilyName  string    `json:"familyName,omitempty"`
	Groups      []string  `json:"groups,omitempty"`
	Authorities []string  `json:"authorities"`
	ExpiresAt   time.Time `json:"expiresAt"`
} //@name UserInfoResponse

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
} //@name MessageResponse

// DecisionResponse is one audited access decision.
type DecisionResponse struct {
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
} //@name DecisionResponse

// ListDecisionsResponse wraps a decision listing.
type ListDecisionsResponse struct {
	Decisions []DecisionResponse `json:"decisions"`
} //@name ListDecisionsResponse
