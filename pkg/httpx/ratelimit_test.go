package httpx_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/bouncer/pkg/authz"
	"github.com/aussiebroadwan/bouncer/pkg/httpx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func requestFrom(remote string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
	req.RemoteAddr = remote
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIPKeyExtractor(t *testing.T) {
	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(requestFrom("192.168.1.1:12345")))
	})

	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := requestFrom("192.168.1.1:12345")
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")
		require.Equal(t, "203.0.113.1", httpx.IPKeyExtractor(req))
	})

	t.Run("uses X-Real-IP if X-Forwarded-For absent", func(t *testing.T) {
		req := requestFrom("192.168.1.1:12345")
		req.Header.Set("X-Real-IP", "203.0.113.2")
		require.Equal(t, "203.0.113.2", httpx.IPKeyExtractor(req))
	})

	t.Run("RemoteAddr without port", func(t *testing.T) {
		require.Equal(t, "pipe", httpx.IPKeyExtractor(requestFrom("pipe")))
	})
}

func withIdentity(req *http.Request, sub string) *http.Request {
	ctx := context.WithValue(req.Context(), httpx.CtxKeyIdentity, &authz.Identity{Subject: sub})
	return req.WithContext(ctx)
}

func TestSubjectKeyExtractors(t *testing.T) {
	anon := requestFrom("192.168.1.1:12345")
	authed := withIdentity(requestFrom("192.168.1.1:12345"), "8d1c")
	noSub := withIdentity(requestFrom("192.168.1.1:12345"), "")

	require.Equal(t, "", httpx.SubjectKeyExtractor(anon))
	require.Equal(t, "sub:8d1c", httpx.SubjectKeyExtractor(authed))
	require.Equal(t, "", httpx.SubjectKeyExtractor(noSub))

	first := httpx.FirstKeyExtractor(httpx.SubjectKeyExtractor, httpx.IPKeyExtractor)
	require.Equal(t, "192.168.1.1", first(anon))
	require.Equal(t, "sub:8d1c", first(authed))
	require.Equal(t, "192.168.1.1", first(noSub))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("blocks requests over the burst", func(t *testing.T) {
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3})(okHandler)

		for i := range 3 {
			require.Equal(t, http.StatusOK, serve(h, requestFrom("192.168.1.1:1")).Code, "request %d", i+1)
		}

		rec := serve(h, requestFrom("192.168.1.1:1"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))

		var body httpx.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.False(t, body.Success)
		require.Equal(t, httpx.CodeTooManyRequests, body.ErrorCode)
		require.Equal(t, http.StatusTooManyRequests, body.StatusCode)
		require.Equal(t, "/api/posts", body.Path)
	})

	t.Run("different keys are tracked separately", func(t *testing.T) {
		h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})(okHandler)

		require.Equal(t, http.StatusOK, serve(h, requestFrom("192.168.1.1:1")).Code)
		require.Equal(t, http.StatusTooManyRequests, serve(h, requestFrom("192.168.1.1:1")).Code)
		require.Equal(t, http.StatusOK, serve(h, requestFrom("192.168.1.2:1")).Code)
	})

	t.Run("callers behind one IP are limited per subject", func(t *testing.T) {
		h := httpx.RateLimitByCaller(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})(okHandler)

		require.Equal(t, http.StatusOK, serve(h, withIdentity(requestFrom("10.0.0.1:1"), "alice")).Code)
		require.Equal(t, http.StatusTooManyRequests, serve(h, withIdentity(requestFrom("10.0.0.1:1"), "alice")).Code)
		require.Equal(t, http.StatusOK, serve(h, withIdentity(requestFrom("10.0.0.1:1"), "bob")).Code)
	})

	t.Run("allows request when key extractor returns empty", func(t *testing.T) {
		empty := func(*http.Request) string { return "" }
		h := httpx.RateLimitMiddleware(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}, empty)(okHandler)

		for range 3 {
			require.Equal(t, http.StatusOK, serve(h, requestFrom("192.168.1.1:1")).Code)
		}
	})
}

func TestRateLimitProfiles(t *testing.T) {
	for name, config := range map[string]httpx.RateLimitConfig{
		"api":   httpx.APILimit,
		"admin": httpx.AdminLimit,
	} {
		t.Run(name, func(t *testing.T) {
			require.Positive(t, config.RequestsPerWindow)
			require.Positive(t, config.Window)
			require.Positive(t, config.Burst)
		})
	}

	require.Less(t, httpx.AdminLimit.RequestsPerWindow, httpx.APILimit.RequestsPerWindow)
}

func TestParseRateLimitFromEnv(t *testing.T) {
	defaultConfig := httpx.RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            time.Minute,
		Burst:             10,
	}

	t.Run("no env vars uses defaults", func(t *testing.T) {
		require.Equal(t, defaultConfig, httpx.ParseRateLimitFromEnv("TEST", defaultConfig))
	})

	t.Run("override all parameters", func(t *testing.T) {
		t.Setenv("BOUNCER_RATELIMIT_TEST_REQUESTS", "200")
		t.Setenv("BOUNCER_RATELIMIT_TEST_WINDOW_SEC", "30")
		t.Setenv("BOUNCER_RATELIMIT_TEST_BURST", "250")

		config := httpx.ParseRateLimitFromEnv("TEST", defaultConfig)
		require.Equal(t, 200, config.RequestsPerWindow)
		require.Equal(t, 30*time.Second, config.Window)
		require.Equal(t, 250, config.Burst)
	})

	t.Run("invalid and zero values use defaults", func(t *testing.T) {
		t.Setenv("BOUNCER_RATELIMIT_TEST_REQUESTS", "invalid")
		t.Setenv("BOUNCER_RATELIMIT_TEST_WINDOW_SEC", "-10")
		t.Setenv("BOUNCER_RATELIMIT_TEST_BURST", "0")

		require.Equal(t, defaultConfig, httpx.ParseRateLimitFromEnv("TEST", defaultConfig))
	})
}

// Benchmark with many different IPs (tests sync.Map performance)
func BenchmarkRateLimitManyIPs(b *testing.B) {
	h := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1000000, Window: time.Minute, Burst: 1000})(okHandler)

	for i := 0; b.Loop(); i++ {
		serve(h, requestFrom(fmt.Sprintf("192.168.%d.%d:12345", i%255, (i/255)%255)))
	}
}
