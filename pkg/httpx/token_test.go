package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aussiebroadwan/bouncer/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		cookie  string
		header  string
		want    string
		wantErr bool
	}{
		{name: "no credentials"},
		{name: "bearer header", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "scheme is case insensitive", header: "bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "cookie only", cookie: "c.o.o", want: "c.o.o"},
		{name: "cookie wins", cookie: "c.o.o", header: "Bearer h.e.a", want: "c.o.o"},
		{name: "blank cookie falls back to header", cookie: " ", header: "Bearer h.e.a", want: "h.e.a"},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantErr: true},
		{name: "bearer without token", header: "Bearer ", wantErr: true},
		{name: "no scheme", header: "abc.def.ghi", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: httpx.AccessTokenCookie, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			got, err := httpx.TokenFromRequest(req, httpx.AccessTokenCookie)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	t.Run("cookie disabled", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: httpx.AccessTokenCookie, Value: "c.o.o"})

		got, err := httpx.TokenFromRequest(req, "")
		require.NoError(t, err)
		require.Empty(t, got)
	})
}

func TestCORS(t *testing.T) {
	h := httpx.CORS([]string{"https://forum.example.com"})(okHandler)

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/secure/user-info", nil)
		req.Header.Set("Origin", "https://forum.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		req.Header.Set("Access-Control-Request-Headers", "Authorization")

		rec := serve(h, req)
		require.Equal(t, "https://forum.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unknown origin gets no grant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/secure/user-info", nil)
		req.Header.Set("Origin", "https://evil.example.com")

		rec := serve(h, req)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestChain(t *testing.T) {
	var order []string
	tag := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	serve(httpx.Chain(okHandler, tag("outer"), tag("inner")), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner"}, order)
}
