package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/bouncer/pkg/httpx"
)

// Pinger is satisfied by store.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KeyStatus is satisfied by jwtx.KeyProvider.
type KeyStatus interface {
	Ready() bool
}

// LivezHandler godoc
//
//	@Summary		Liveness check
//	@Description	Always returns 200 while the process is serving
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"status, uptime, version"
//	@Router			/livez [get]
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness check
//	@Description	Reports whether the audit database answers and signing keys are cached.
//	@Description	Without keys every token would fail with 503, so the instance is not ready.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	HealthResponse	"service not ready"
//	@Router			/readyz [get]
func ReadyzHandler(startTime time.Time, version string, db Pinger, keys KeyStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &HealthChecks{Database: "ok", JWKS: "ok"}
		status, code := "ok", http.StatusOK

		if err := db.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
		}

		if !keys.Ready() {
			checks.JWKS = "error: no signing keys loaded"
			status, code = "degraded", http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

// ProtectedResourceHandler godoc
//
//	@Summary		OAuth 2.0 protected resource metadata
//	@Description	RFC 9728 metadata naming the authorization server for this API
//	@Tags			Discovery
//	@Produce		json
//	@Success		200	{object}	ProtectedResourceMetadata
//	@Router			/.well-known/oauth-protected-resource [get]
func ProtectedResourceHandler(meta ProtectedResourceMetadata) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, meta)
	}
}
