package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aussiebroadwan/bouncer/pkg/authz"
	"github.com/aussiebroadwan/bouncer/pkg/jwtx"
	"github.com/aussiebroadwan/bouncer/pkg/slogx"
)

// TokenVerifier validates a raw access token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*jwtx.Claims, error)
}

// IdentityMapper turns verified claims into an identity.
type IdentityMapper interface {
	Map(claims *jwtx.Claims) *authz.Identity
}

// Authorizer decides whether an identity may act on a resource.
type Authorizer interface {
	Authorize(id *authz.Identity, resource, action string) authz.Decision
}

// GuardConfig wires the request guard.
type GuardConfig struct {
	Verifier   TokenVerifier
	Mapper     IdentityMapper
	Authorizer Authorizer

	// Recorder sees every outcome. Optional.
	Recorder Recorder

	// Realm goes into WWW-Authenticate challenges.
	Realm string

	// ResourceMetadataURL, when set, is advertised in challenges so clients
	// can discover the authorization server (RFC 9728).
	ResourceMetadataURL string

	// CookieName is checked before the Authorization header. Empty disables
	// cookie tokens.
	CookieName string
}

// Guard authenticates and authorizes every request passing through it.
//
// A presented token is always verified, even on public routes, and a bad
// one rejects the request. The request path and method are then checked
// against the Authorizer. On success the claims, identity and decision are
// put in the request context.
func Guard(cfg GuardConfig) Middleware {
	if cfg.Realm == "" {
		cfg.Realm = "bouncer"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ev := DecisionEvent{
				RequestID:  slogx.RequestID(ctx),
				Method:     r.Method,
				Path:       r.URL.Path,
				OccurredAt: time.Now().UTC(),
			}

			// 1. Find the token, if any.
			raw, err := TokenFromRequest(r, cfg.CookieName)
			if err != nil {
				ev.VerifyErr = fmt.Errorf("%w: %w", jwtx.ErrMalformed, err)
				ev.Status = cfg.writeVerifyError(w, r, ev.VerifyErr)
				cfg.record(ctx, ev)
				return
			}

			// 2. Verify it and map the caller.
			var claims *jwtx.Claims
			if raw != "" {
				claims, err = cfg.Verifier.Verify(ctx, raw)
				if err != nil {
					ev.VerifyErr = err
					ev.Status = cfg.writeVerifyError(w, r, err)
					cfg.record(ctx, ev)
					return
				}
				ev.Identity = cfg.Mapper.Map(claims)
				ctx = slogx.With(ctx, "sub", ev.Identity.Subject)
			}

			// 3. Ask the policy.
			ev.Decision = cfg.Authorizer.Authorize(ev.Identity, r.URL.Path, r.Method)
			if !ev.Decision.Allow {
				ev.Status = cfg.writeDenied(w, r, ev.Identity)
				cfg.record(ctx, ev)
				return
			}

			// Allowed requests are recorded with the status the handler wrote.
			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(contextWithAuth(ctx, claims, ev.Identity, ev.Decision)))

			ev.Status = rw.status
			cfg.record(ctx, ev)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter

	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

func (cfg GuardConfig) record(ctx context.Context, ev DecisionEvent) {
	if cfg.Recorder != nil {
		cfg.Recorder.Record(ctx, ev)
	}
}

// writeVerifyError maps a verification failure onto a response and returns
// the status written.
func (cfg GuardConfig) writeVerifyError(w http.ResponseWriter, r *http.Request, err error) int {
	switch {
	case errors.Is(err, jwtx.ErrProviderUnavailable):
		w.Header().Set("Retry-After", "5")
		WriteError(w, r, http.StatusServiceUnavailable, CodeServiceUnavailable,
			"Authentication service is temporarily unavailable")
		return http.StatusServiceUnavailable

	case errors.Is(err, jwtx.ErrMalformed):
		cfg.writeBearerError(w, "invalid_request", "malformed access token")
		WriteError(w, r, http.StatusBadRequest, CodeInvalidRequest, "Malformed access token")
		return http.StatusBadRequest

	default:
		cfg.writeBearerError(w, "invalid_token", describe(err))
		WriteError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Invalid or expired access token")
		return http.StatusUnauthorized
	}
}

// writeDenied answers a policy denial: anonymous callers are asked to
// authenticate, authenticated ones are forbidden.
func (cfg GuardConfig) writeDenied(w http.ResponseWriter, r *http.Request, id *authz.Identity) int {
	if id.Anonymous() {
		w.Header().Set("WWW-Authenticate", cfg.challenge(""))
		WriteError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
		return http.StatusUnauthorized
	}

	// RFC 6750-compliant error response for bearer insufficient_scope.
	w.Header().Set("WWW-Authenticate", cfg.challenge(`error="insufficient_scope"`))
	WriteError(w, r, http.StatusForbidden, CodeForbidden, "Access denied")
	return http.StatusForbidden
}

// RFC 6750-compliant error response for bearer auth.
func (cfg GuardConfig) writeBearerError(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", cfg.challenge(`error="`+code+`", error_description="`+desc+`"`))
}

func (cfg GuardConfig) challenge(params string) string {
	c := `Bearer realm="` + cfg.Realm + `"`
	if cfg.ResourceMetadataURL != "" {
		c += `, resource_metadata="` + cfg.ResourceMetadataURL + `"`
	}
	if params != "" {
		c += ", " + params
	}
	return c
}

// describe gives a client safe description of a verification failure.
func describe(err error) string {
	switch {
	case errors.Is(err, jwtx.ErrExpired):
		return "token expired"
	case errors.Is(err, jwtx.ErrNotYetValid):
		return "token not yet valid"
	case errors.Is(err, jwtx.ErrIssuerMismatch):
		return "issuer mismatch"
	case errors.Is(err, jwtx.ErrAudienceMismatch):
		return "audience mismatch"
	case errors.Is(err, jwtx.ErrKeyNotFound):
		return "unknown signing key"
	default:
		return "token verification failed"
	}
}
