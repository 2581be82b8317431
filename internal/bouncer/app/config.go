package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/bouncer/pkg/authz"
	"github.com/aussiebroadwan/bouncer/pkg/httpx"
	"github.com/aussiebroadwan/bouncer/pkg/jwtx"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	IssuerURL string   `validate:"required,url"`           // Required: expected iss, also the discovery base
	Audience  []string `validate:"required,dive,required"` // Required: accepted aud values
	JWKSURI   string   `validate:"omitempty,url"`          // Optional: discovered from IssuerURL when empty

	CacheTTL           time.Duration `validate:"gt=0"`  // JWKS cache lifetime (default: 1h)
	ClockSkew          time.Duration `validate:"gte=0"` // exp/nbf tolerance (default: 30s)
	FetchTimeout       time.Duration `validate:"gt=0"`  // Bound on one JWKS refresh (default: 5s)
	MinRefreshInterval time.Duration `validate:"gt=0"`  // Minimum gap between unknown-kid refreshes (default: 10s)
	AllowedAlgorithms  []string      `validate:"required,dive,oneof=RS256 RS384 RS512 PS256 PS384 PS512 ES256 ES384 ES512 EdDSA"`

	RoleClaimPaths []string          `validate:"required,dive,required"` // Claim paths holding roles (default: realm_access.roles)
	RoleMapping    map[string]string                                     // From BOUNCER_ROLE_MAPPING, merged over the policy file's mapping
	PrincipalClaim string            `validate:"required"`               // default: preferred_username
	PolicyFile     string            `validate:"required"`               // default: configs/policy.yaml

	Realm                string                            // WWW-Authenticate realm (default: bouncer)
	PublicURL            string `validate:"omitempty,url"` // Base URL advertised in protected resource metadata
	CORSOrigins          []string
	DatabaseFile         string        `validate:"required"` // Audit database (default: ./bouncer.db)
	AuditRetention       time.Duration `validate:"gt=0"`     // How long decisions are kept (default: 30 days)
	AuditBuffer          int           `validate:"gt=0"`     // Queued decisions before dropping (default: 1024)
	Env                  string                              // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        `validate:"oneof=debug info warn warning error"`
	LogFormat            string        `validate:"oneof=json text"`
	Port                 int           `validate:"min=1,max=65535"`
	ShutdownGracePeriod  time.Duration `validate:"gt=0"`
	HousekeepingInterval time.Duration `validate:"gt=0"`

	IPLimit    httpx.RateLimitConfig
	APILimit   httpx.RateLimitConfig
	AdminLimit httpx.RateLimitConfig
}

// LoadConfig reads .env when present, then the environment, and validates
// the result.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	roleMapping, err := ParseRoleMapping(os.Getenv("BOUNCER_ROLE_MAPPING"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		IssuerURL: strings.TrimRight(os.Getenv("BOUNCER_ISSUER_URL"), "/"),
		Audience:  splitList(os.Getenv("BOUNCER_AUDIENCE")),
		JWKSURI:   os.Getenv("BOUNCER_JWKS_URI"),

		CacheTTL:           getEnvSecondsOrDefault("BOUNCER_CACHE_TTL_SECONDS", jwtx.DefaultCacheTTL),
		ClockSkew:          getEnvSecondsOrDefault("BOUNCER_CLOCK_SKEW_TOLERANCE_SECONDS", jwtx.DefaultClockSkew),
		FetchTimeout:       getEnvDurationOrDefault("BOUNCER_FETCH_TIMEOUT", jwtx.DefaultFetchTimeout),
		MinRefreshInterval: getEnvDurationOrDefault("BOUNCER_MIN_REFRESH_INTERVAL", jwtx.DefaultMinRefreshInterval),
		AllowedAlgorithms:  getEnvListOrDefault("BOUNCER_ALLOWED_ALGORITHMS", jwtx.DefaultAllowedAlgorithms),

		RoleClaimPaths: getEnvListOrDefault("BOUNCER_ROLE_CLAIM_PATH", []string{authz.DefaultRoleClaimPath}),
		RoleMapping:    roleMapping,
		PrincipalClaim: getEnvOrDefault("BOUNCER_PRINCIPAL_CLAIM", authz.DefaultPrincipalClaim),
		PolicyFile:     getEnvOrDefault("BOUNCER_POLICY_FILE", "configs/policy.yaml"),

		Realm:                getEnvOrDefault("BOUNCER_REALM", "bouncer"),
		PublicURL:            strings.TrimRight(os.Getenv("BOUNCER_PUBLIC_URL"), "/"),
		CORSOrigins:          getEnvListOrDefault("BOUNCER_CORS_ORIGINS", httpx.DefaultCORSOrigins),
		DatabaseFile:         getEnvOrDefault("BOUNCER_DATABASE_FILE", "bouncer.db"),
		AuditRetention:       getEnvDurationOrDefault("BOUNCER_AUDIT_RETENTION", 30*24*time.Hour),
		AuditBuffer:          getEnvIntOrDefault("BOUNCER_AUDIT_BUFFER", 1024),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		LogFormat:            strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),

		IPLimit:    httpx.ParseRateLimitFromEnv("IP", httpx.IPLimit),
		APILimit:   httpx.ParseRateLimitFromEnv("API", httpx.APILimit),
		AdminLimit: httpx.ParseRateLimitFromEnv("ADMIN", httpx.AdminLimit),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ParseRoleMapping parses "role=AUTHORITY,role2=AUTHORITY2".
func ParseRoleMapping(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, entry := range splitList(s) {
		role, authority, ok := strings.Cut(entry, "=")
		role, authority = strings.TrimSpace(role), strings.TrimSpace(authority)
		if !ok || role == "" || authority == "" {
			return nil, fmt.Errorf("invalid role mapping entry %q, want role=AUTHORITY", entry)
		}
		out[role] = authority
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	if list := splitList(os.Getenv(key)); len(list) > 0 {
		return list
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

// getEnvSecondsOrDefault reads a whole number of seconds.
func getEnvSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if secs, err := strconv.Atoi(value); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are seconds
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultValue
}
