package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/bouncer/internal/bouncer/http"
	"github.com/aussiebroadwan/bouncer/internal/bouncer/metrics"
	"github.com/aussiebroadwan/bouncer/internal/bouncer/service"
	"github.com/aussiebroadwan/bouncer/internal/bouncer/store"
	"github.com/aussiebroadwan/bouncer/internal/bouncer/store/drivers/sqlite"
	"github.com/aussiebroadwan/bouncer/pkg/authz"
	"github.com/aussiebroadwan/bouncer/pkg/httpx"
	"github.com/aussiebroadwan/bouncer/pkg/jwtx"
	"github.com/aussiebroadwan/bouncer/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

const serviceName = "bouncer"

// Application wires the resource server together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core
	db       store.Store
	keys     *jwtx.KeyProvider
	verifier *jwtx.Verifier
	mapper   *authz.Mapper
	enforcer *authz.Enforcer
	metrics  *metrics.Metrics

	// Background services
	auditWriter      *service.AuditWriter
	retentionService *service.RetentionService
	keyWarmer        *service.KeyWarmer

	server *http.Server
	router *httpapi.Router
}

// New creates the Application. Discovery runs here when no JWKS URI is
// configured, so an unreachable IdP fails startup.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: serviceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initPolicy(); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initKeys(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until an interrupt or SIGTERM.
func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done, then
// shuts down gracefully.
func (app *Application) RunContext(ctx context.Context) error {
	app.keyWarmer.Start()
	app.auditWriter.Start()
	app.retentionService.Start()

	app.logger.Info("bouncer starting", "port", app.cfg.Port, "version", BuildVersion, "issuer", app.cfg.IssuerURL)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.stopServices()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		app.logger.Info("shutdown requested", "cause", context.Cause(ctx))

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains HTTP, flushes the audit log and closes the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down bouncer...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// After the server so in-flight decisions still reach the audit log.
	app.stopServices()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("bouncer stopped")
	return nil
}

// Handler exposes the HTTP handler, for tests.
func (app *Application) Handler() http.Handler { return app.router }

func (app *Application) stopServices() {
	app.keyWarmer.Stop()
	app.auditWriter.Stop()
	app.retentionService.Stop()
}

// initPolicy loads the policy file and builds the mapper and enforcer.
func (app *Application) initPolicy() error {
	policy, err := LoadPolicy(app.cfg.PolicyFile)
	if err != nil {
		return err
	}

	app.mapper, err = authz.NewMapper(authz.MapperConfig{
		RoleClaimPaths: app.cfg.RoleClaimPaths,
		RoleMapping:    mergeRoleMapping(policy.RoleMapping, app.cfg.RoleMapping),
		PrincipalClaim: app.cfg.PrincipalClaim,
	})
	if err != nil {
		return fmt.Errorf("role mapping: %w", err)
	}

	app.enforcer, err = authz.NewEnforcer(policy.Policy())
	if err != nil {
		return fmt.Errorf("access policy: %w", err)
	}

	app.logger.Info("access policy loaded",
		"file", app.cfg.PolicyFile,
		"rules", len(policy.Rules),
		"confinements", len(policy.Confinements),
		"authorities", app.mapper.MappedAuthorities(),
	)
	return nil
}

// initDatabase opens the audit database and applies migrations
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initKeys resolves the JWKS endpoint and builds the provider and verifier.
func (app *Application) initKeys(ctx context.Context) error {
	client := &http.Client{Timeout: app.cfg.FetchTimeout}

	jwksURI := app.cfg.JWKSURI
	if jwksURI == "" {
		dctx, cancel := context.WithTimeout(ctx, app.cfg.FetchTimeout)
		defer cancel()

		doc, err := jwtx.Discover(dctx, client, app.cfg.IssuerURL)
		if err != nil {
			return fmt.Errorf("discover JWKS URI: %w", err)
		}
		jwksURI = doc.JWKSURI
		app.logger.Info("discovered JWKS endpoint", "jwks_uri", jwksURI)
	}

	var keys *jwtx.KeyProvider
	app.metrics = metrics.New(serviceName, func() int { return len(keys.Keys()) })

	keys, err := jwtx.NewKeyProvider(jwtx.ProviderOptions{
		JWKSURI:            jwksURI,
		TTL:                app.cfg.CacheTTL,
		FetchTimeout:       app.cfg.FetchTimeout,
		MinRefreshInterval: app.cfg.MinRefreshInterval,
		HTTPClient:         client,
		Logger:             app.logger,
		OnRefresh:          app.metrics.ObserveRefresh,
	})
	if err != nil {
		return err
	}
	app.keys = keys

	app.verifier, err = jwtx.NewVerifier(keys, jwtx.VerifierOptions{
		Issuer:            app.cfg.IssuerURL,
		Audience:          app.cfg.Audience,
		AllowedAlgorithms: app.cfg.AllowedAlgorithms,
		ClockSkew:         app.cfg.ClockSkew,
	})
	return err
}

// initServices creates the background workers.
func (app *Application) initServices() {
	app.keyWarmer = service.NewKeyWarmer(app.keys, app.logger)
	app.auditWriter = service.NewAuditWriter(app.db, app.logger, app.cfg.AuditBuffer)
	app.retentionService = service.NewRetentionService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.AuditRetention,
	)
}

// initHTTP builds the router and server
func (app *Application) initHTTP() {
	resource := app.cfg.PublicURL
	if resource == "" {
		resource = fmt.Sprintf("http://localhost:%d", app.cfg.Port)
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Guard: httpx.GuardConfig{
			Verifier:   app.verifier,
			Mapper:     app.mapper,
			Authorizer: app.enforcer,
			Recorder: httpx.Recorders{
				httpx.LogRecorder,
				app.metrics,
				app.auditWriter,
			},
			Realm:               app.cfg.Realm,
			ResourceMetadataURL: resource + "/.well-known/oauth-protected-resource",
			CookieName:          httpx.AccessTokenCookie,
		},
		Keys:    app.keys,
		Store:   app.db,
		Metrics: app.metrics.Handler(),
		Metadata: httpapi.ProtectedResourceMetadata{
			Resource:               resource,
			AuthorizationServers:   []string{app.cfg.IssuerURL},
			BearerMethodsSupported: []string{"header"},
			SigningAlgValues:       app.cfg.AllowedAlgorithms,
			ResourceName:           serviceName,
		},
		BuildVersion: BuildVersion,
		Logger:       app.logger,
		CORSOrigins:  app.cfg.CORSOrigins,
		IPLimit:      app.cfg.IPLimit,
		APILimit:     app.cfg.APILimit,
		AdminLimit:   app.cfg.AdminLimit,
	})
	router.ApplyRoutes()
	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
