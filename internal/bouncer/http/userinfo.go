package http

import (
	"net/http"

	"github.com/aussiebroadwan/bouncer/pkg/httpx"
)

// UserInfoHandler echoes the verified caller back.
type UserInfoHandler struct{}

// ServeHTTP returns the authenticated caller's identity.
//
//	@Summary		Current user
//	@Description	Returns the identity and authorities derived from the caller's access token.
//	@Tags			Secure
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	UserInfoResponse
//	@Failure		401	{object}	httpx.ErrorResponse	"Missing or invalid access token"
//	@Failure		403	{object}	httpx.ErrorResponse	"Caller lacks a required authority"
//	@Failure		503	{object}	httpx.ErrorResponse	"Identity provider unreachable"
//	@Router			/api/secure/user-info [get]
func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := httpx.IdentityFromContext(ctx)
	claims := httpx.ClaimsFromContext(ctx)
	if id.Anonymous() || claims == nil {
		// Only reachable if the policy makes this route public.
		httpx.WriteError(w, r, http.StatusUnauthorized, httpx.CodeUnauthorized, "Authentication required")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, UserInfoResponse{
		Subject:     id.Subject,
		Username:    id.Principal,
		Email:       id.Email,
		Name:        id.Name,
		GivenName:   claims.GivenName,
		FamilyName:  claims.FamilyName,
		Groups:      id.Groups,
		Authorities: id.Authorities,
		ExpiresAt:   id.ExpiresAt,
	})
}

// AdminOnlyHandler godoc
//
//	@Summary		Admin check
//	@Description	Succeeds only for callers holding ROLE_ADMIN under the shipped policy.
//	@Tags			Secure
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	MessageResponse
//	@Failure		401	{object}	httpx.ErrorResponse
//	@Failure		403	{object}	httpx.ErrorResponse
//	@Router			/api/secure/admin-only [get]
func AdminOnlyHandler(w http.ResponseWriter, r *http.Request) {
	id := httpx.IdentityFromContext(r.Context())
	if id.Anonymous() {
		httpx.WriteError(w, r, http.StatusUnauthorized, httpx.CodeUnauthorized, "Authentication required")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{
		Success: true,
		Message: "Welcome, " + id.Principal,
	})
}

// PublicInfoHandler godoc
//
//	@Summary		Public endpoint
//	@Description	Reachable without a token. A presented token is still verified.
//	@Tags			Public
//	@Produce		json
//	@Success		200	{object}	MessageResponse
//	@Failure		401	{object}	httpx.ErrorResponse	"A presented token was invalid"
//	@Router			/api/public/info [get]
func PublicInfoHandler(w http.ResponseWriter, r *http.Request) {
	msg := "Hello, guest"
	if id := httpx.IdentityFromContext(r.Context()); !id.Anonymous() && id.Principal != "" {
		msg = "Hello, " + id.Principal
	}
	httpx.WriteJSON(w, http.StatusOK, MessageResponse{Success: true, Message: msg})
}
