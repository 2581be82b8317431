package httpx_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/bouncer/pkg/authz"
	"github.com/aussiebroadwan/bouncer/pkg/httpx"
	"github.com/aussiebroadwan/bouncer/pkg/jwtx"
	"github.com/aussiebroadwan/bouncer/pkg/jwtx/jwtxtest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	guardIssuer   = "https://sso.example.com/realms/forum"
	guardAudience = "forum-api"
)

type captured struct {
	mu     sync.Mutex
	events []httpx.DecisionEvent
}

func (c *captured) Record(_ context.Context, ev httpx.DecisionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captured) last(t *testing.T) httpx.DecisionEvent {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.events)
	return c.events[len(c.events)-1]
}

type guardFixture struct {
	srv     *jwtxtest.Server
	signer  *jwtxtest.Signer
	events  *captured
	handler http.Handler
}

func newGuardFixture(t *testing.T) guardFixture {
	t.Helper()

	signer, err := jwtxtest.NewRS256("k1")
	require.NoError(t, err)
	srv := jwtxtest.NewServer(signer)
	t.Cleanup(srv.Close)

	provider, err := jwtx.NewKeyProvider(jwtx.ProviderOptions{JWKSURI: srv.JWKSURI(), FetchAttempts: 1})
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifier(provider, jwtx.VerifierOptions{
		Issuer:   guardIssuer,
		Audience: []string{guardAudience},
	})
	require.NoError(t, err)

	mapper, err := authz.NewMapper(authz.MapperConfig{RoleMapping: map[string]string{
		"forum_member": "ROLE_USER",
		"admin":        "ROLE_ADMIN",
	}})
	require.NoError(t, err)

	enforcer, err := authz.NewEnforcer(authz.Policy{Rules: []authz.Rule{
		{Resource: "/api/public/**", Actions: []string{"GET"}},
		{Resource: "/api/secure/**", Actions: []string{"*"}, Authorities: []string{"ROLE_USER", "ROLE_ADMIN"}},
		{Resource: "/api/admin/**", Actions: []string{"*"}, Authorities: []string{"ROLE_ADMIN"}},
	}})
	require.NoError(t, err)

	events := &captured{}

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/secure/missing" {
			httpx.WriteError(w, r, http.StatusNotFound, httpx.CodeNotFound, "Not found")
			return
		}
		body := map[string]any{"anonymous": true}
		if id := httpx.IdentityFromContext(r.Context()); id != nil {
			body = map[string]any{"sub": id.Subject, "authorities": id.Authorities}
		}
		httpx.WriteJSON(w, http.StatusOK, body)
	})

	h := httpx.Chain(echo, httpx.Guard(httpx.GuardConfig{
		Verifier:            verifier,
		Mapper:              mapper,
		Authorizer:          enforcer,
		Recorder:            events,
		Realm:               "forum",
		ResourceMetadataURL: "http://api.test/.well-known/oauth-protected-resource",
		CookieName:          httpx.AccessTokenCookie,
	}))

	return guardFixture{srv: srv, signer: signer, events: events, handler: h}
}

func (f guardFixture) token(t *testing.T, mutate func(jwt.MapClaims), roles ...string) string {
	t.Helper()
	claims := jwtxtest.Claims(guardIssuer, "alice", []string{guardAudience}, roles, 5*time.Minute)
	if mutate != nil {
		mutate(claims)
	}
	tok, err := f.signer.Sign(claims)
	require.NoError(t, err)
	return tok
}

func (f guardFixture) do(method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return serve(f.handler, req)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpx.ErrorResponse {
	t.Helper()
	var body httpx.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGuard_Allows(t *testing.T) {
	f := newGuardFixture(t)

	t.Run("authorized caller", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/secure/user-info", f.token(t, nil, "forum_member"))
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"sub":"alice","authorities":["ROLE_USER"]}`, rec.Body.String())

		ev := f.events.last(t)
		require.True(t, ev.Allowed())
		require.Equal(t, authz.ReasonGranted, ev.Outcome())
		require.Equal(t, "alice", ev.Identity.Subject)
	})

	t.Run("anonymous on public route", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/public/posts", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"anonymous":true}`, rec.Body.String())
		require.Equal(t, authz.ReasonPublic, f.events.last(t).Outcome())
	})

	t.Run("verified token without sub", func(t *testing.T) {
		tok := f.token(t, func(c jwt.MapClaims) { delete(c, "sub") }, "forum_member")
		rec := f.do(http.MethodGet, "/api/secure/user-info", tok)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, authz.ReasonGranted, f.events.last(t).Outcome())
	})
}

func TestGuard_RecordsHandlerStatus(t *testing.T) {
	f := newGuardFixture(t)
	member := f.token(t, nil, "forum_member")

	rec := f.do(http.MethodGet, "/api/secure/missing", member)
	require.Equal(t, http.StatusNotFound, rec.Code)

	ev := f.events.last(t)
	require.True(t, ev.Allowed())
	require.Equal(t, http.StatusNotFound, ev.Status)

	rec = f.do(http.MethodGet, "/api/secure/user-info", member)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, http.StatusOK, f.events.last(t).Status)
}

func TestGuard_Rejects(t *testing.T) {
	f := newGuardFixture(t)

	tests := []struct {
		name      string
		method    string
		path      string
		token     func(t *testing.T) string
		status    int
		code      string
		challenge string
		outcome   string
	}{
		{
			name: "anonymous on protected route", method: http.MethodGet, path: "/api/secure/user-info",
			token:     func(*testing.T) string { return "" },
			status:    http.StatusUnauthorized,
			code:      httpx.CodeUnauthorized,
			challenge: `Bearer realm="forum", resource_metadata="http://api.test/.well-known/oauth-protected-resource"`,
			outcome:   authz.ReasonUnauthenticated,
		},
		{
			name: "malformed token", method: http.MethodGet, path: "/api/secure/user-info",
			token:     func(*testing.T) string { return "not-a-jwt" },
			status:    http.StatusBadRequest,
			code:      httpx.CodeInvalidRequest,
			challenge: `error="invalid_request"`,
			outcome:   "malformed",
		},
		{
			name: "expired token", method: http.MethodGet, path: "/api/secure/user-info",
			token: func(t *testing.T) string {
				return f.token(t, func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() }, "forum_member")
			},
			status:    http.StatusUnauthorized,
			code:      httpx.CodeUnauthorized,
			challenge: `error="invalid_token", error_description="token expired"`,
			outcome:   "expired",
		},
		{
			name: "wrong audience", method: http.MethodGet, path: "/api/secure/user-info",
			token: func(t *testing.T) string {
				return f.token(t, func(c jwt.MapClaims) { c["aud"] = "api-x" }, "forum_member")
			},
			status:    http.StatusUnauthorized,
			code:      httpx.CodeUnauthorized,
			challenge: `error_description="audience mismatch"`,
			outcome:   "audience_mismatch",
		},
		{
			name: "bad token on a public route", method: http.MethodGet, path: "/api/public/posts",
			token: func(t *testing.T) string {
				return f.token(t, func(c jwt.MapClaims) { c["iss"] = "https://evil" })
			},
			status:    http.StatusUnauthorized,
			code:      httpx.CodeUnauthorized,
			challenge: `error="invalid_token"`,
			outcome:   "issuer_mismatch",
		},
		{
			name: "insufficient authority", method: http.MethodDelete, path: "/api/admin/decisions",
			token:     func(t *testing.T) string { return f.token(t, nil, "forum_member") },
			status:    http.StatusForbidden,
			code:      httpx.CodeForbidden,
			challenge: `error="insufficient_scope"`,
			outcome:   authz.ReasonInsufficientAuthority,
		},
		{
			name: "verified token without sub or roles", method: http.MethodGet, path: "/api/secure/user-info",
			token: func(t *testing.T) string {
				return f.token(t, func(c jwt.MapClaims) { delete(c, "sub") })
			},
			status:    http.StatusForbidden,
			code:      httpx.CodeForbidden,
			challenge: `error="insufficient_scope"`,
			outcome:   authz.ReasonInsufficientAuthority,
		},
		{
			name: "no matching rule", method: http.MethodGet, path: "/internal/debug",
			token:     func(t *testing.T) string { return f.token(t, nil, "admin") },
			status:    http.StatusForbidden,
			code:      httpx.CodeForbidden,
			challenge: `error="insufficient_scope"`,
			outcome:   authz.ReasonNoMatchingRule,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, tt.token(t))

			require.Equal(t, tt.status, rec.Code)
			require.Contains(t, rec.Header().Get("WWW-Authenticate"), tt.challenge)
			require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

			body := decodeError(t, rec)
			require.False(t, body.Success)
			require.Equal(t, tt.code, body.ErrorCode)
			require.Equal(t, tt.status, body.StatusCode)
			require.Equal(t, tt.path, body.Path)

			ev := f.events.last(t)
			require.False(t, ev.Allowed())
			require.Equal(t, tt.outcome, ev.Outcome())
			require.Equal(t, tt.status, ev.Status)
		})
	}
}

func TestGuard_ProviderUnavailable(t *testing.T) {
	f := newGuardFixture(t)
	f.srv.SetStatus(http.StatusBadGateway)

	rec := f.do(http.MethodGet, "/api/secure/user-info", f.token(t, nil, "forum_member"))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Empty(t, rec.Header().Get("WWW-Authenticate"))
	require.Equal(t, httpx.CodeServiceUnavailable, decodeError(t, rec).ErrorCode)
	require.Equal(t, "provider_unavailable", f.events.last(t).Outcome())

	// Next request refetches and succeeds
	f.srv.SetStatus(http.StatusOK)
	rec = f.do(http.MethodGet, "/api/secure/user-info", f.token(t, nil, "forum_member"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGuard_CookieWinsOverHeader(t *testing.T) {
	f := newGuardFixture(t)

	admin := f.token(t, func(c jwt.MapClaims) { c["sub"] = "root" }, "admin")
	member := f.token(t, nil, "forum_member")

	req := httptest.NewRequest(http.MethodGet, "/api/admin/decisions", nil)
	req.AddCookie(&http.Cookie{Name: httpx.AccessTokenCookie, Value: admin})
	req.Header.Set("Authorization", "Bearer "+member)

	rec := serve(f.handler, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "root", f.events.last(t).Identity.Subject)
}
