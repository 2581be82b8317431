package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/bouncer/internal/bouncer/store"
	"github.com/aussiebroadwan/bouncer/pkg/httpx"
	"github.com/aussiebroadwan/bouncer/pkg/slogx"

	_ "github.com/aussiebroadwan/bouncer/api/bouncer" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig carries the router's dependencies.
type RouterConfig struct {
	Guard    httpx.GuardConfig
	Keys     KeyStatus
	Store    store.Store
	Metrics  http.Handler
	Metadata ProtectedResourceMetadata

	BuildVersion string
	Logger       *slog.Logger
	CORSOrigins  []string
	IPLimit      httpx.RateLimitConfig
	APILimit     httpx.RateLimitConfig
	AdminLimit   httpx.RateLimitConfig
}

// Router serves infrastructure endpoints directly and everything under
// /api/ through the request guard.
type Router struct {
	Mux         *http.ServeMux
	api         *http.ServeMux
	middlewares []httpx.Middleware

	cfg       RouterConfig
	startTime time.Time
}

func NewRouter(cfg RouterConfig) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		api:       http.NewServeMux(),
		cfg:       cfg,
		startTime: time.Now(),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(cfg.Logger),
		httpx.CORS(cfg.CORSOrigins),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSystem()
	r.registerSecure()
	r.registerAdmin()

	// The IP limit sheds anonymous and bad-token floods before the guard
	// verifies anything. The caller limit follows the guard so it can key
	// on the subject.
	r.Mux.Handle("/api/", httpx.Chain(r.api,
		httpx.RateLimitByIP(r.cfg.IPLimit),
		httpx.Guard(r.cfg.Guard),
		httpx.RateLimitByCaller(r.cfg.APILimit),
	))

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Bouncer Resource Server API
//	@version		0.1.0
//	@description	Demo API protected by Keycloak-issued access tokens.
//	@description
//	@description	Tokens are verified against the realm's JWKS and mapped to authorities by the access policy.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/bouncer
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Keycloak access token. Format: "Bearer {token}". The ACCESS_TOKEN cookie is also accepted.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.cfg.BuildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.cfg.BuildVersion, r.cfg.Store, r.cfg.Keys))
	r.Mux.Handle("GET /.well-known/oauth-protected-resource", ProtectedResourceHandler(r.cfg.Metadata))

	if r.cfg.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.cfg.Metrics)
	}
}

func (r *Router) registerSecure() {
	r.api.HandleFunc("GET /api/public/info", PublicInfoHandler)
	r.api.Handle("GET /api/secure/user-info", &UserInfoHandler{})
	r.api.HandleFunc("GET /api/secure/admin-only", AdminOnlyHandler)
}

func (r *Router) registerAdmin() {
	h := &DecisionsHandler{Store: r.cfg.Store}

	// Listings hit the database, so admins get a tighter budget on top of
	// the API limit.
	r.api.Handle("GET /api/admin/decisions",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.RateLimitByCaller(r.cfg.AdminLimit),
		),
	)
	r.api.Handle("GET /api/admin/decisions/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.RateLimitByCaller(r.cfg.AdminLimit),
		),
	)
}
