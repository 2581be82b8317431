package httpx

import (
	"net/http"

	"github.com/go-chi/cors"
)

// DefaultCORSOrigins are the local frontend dev servers.
var DefaultCORSOrigins = []string{"http://localhost:3000", "http://localhost:3001"}

// CORS allows the browser frontend at origins to call the API with its
// ACCESS_TOKEN cookie.
func CORS(origins []string) Middleware {
	if len(origins) == 0 {
		origins = DefaultCORSOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"WWW-Authenticate", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           3600,
	})
}
