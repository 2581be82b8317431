package authz

import (
	"errors"
	"slices"
	"strings"

	"github.com/aussiebroadwan/bouncer/pkg/jwtx"
)

// Mapper defaults, matching how Keycloak lays out an access token.
const (
	DefaultRoleClaimPath  = "realm_access.roles"
	DefaultPrincipalClaim = "preferred_username"
)

// MapperConfig configures how claims become an Identity.
type MapperConfig struct {
	// RoleClaimPaths are dot separated paths into the payload that hold
	// provider roles. All paths are read and merged.
	RoleClaimPaths []string

	// RoleMapping maps a provider role to an internal authority. Roles
	// missing from the map are dropped.
	RoleMapping map[string]string

	// PrincipalClaim names the human readable identifier. Falls back to sub.
	PrincipalClaim string
}

// Mapper derives an Identity from verified claims. It is immutable after
// construction and safe for concurrent use.
type Mapper struct {
	paths     []string
	mapping   map[string]string
	principal string
}

// NewMapper validates cfg and returns a Mapper.
func NewMapper(cfg MapperConfig) (*Mapper, error) {
	paths := make([]string, 0, len(cfg.RoleClaimPaths))
	for _, p := range cfg.RoleClaimPaths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		paths = []string{DefaultRoleClaimPath}
	}

	mapping := make(map[string]string, len(cfg.RoleMapping))
	for role, authority := range cfg.RoleMapping {
		role, authority = strings.TrimSpace(role), strings.TrimSpace(authority)
		if role == "" || authority == "" {
			return nil, errors.New("authz: role mapping entries need both a role and an authority")
		}
		mapping[role] = authority
	}

	principal := cfg.PrincipalClaim
	if principal == "" {
		principal = DefaultPrincipalClaim
	}

	return &Mapper{paths: paths, mapping: mapping, principal: principal}, nil
}

// Map builds the Identity for claims. It never fails: missing role claims
// simply produce an identity without authorities.
func (m *Mapper) Map(claims *jwtx.Claims) *Identity {
	id := &Identity{
		Subject:     claims.Subject,
		Principal:   m.principalOf(claims),
		Email:       claims.Email,
		Name:        claims.Name,
		Groups:      slices.Clone(claims.Groups),
		Authorities: m.Authorities(claims),
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id
}

// Authorities resolves the mapped authorities for claims, sorted and unique.
func (m *Mapper) Authorities(claims *jwtx.Claims) []string {
	out := []string{}
	for _, path := range m.paths {
		for _, role := range claims.Strings(path) {
			if a, ok := m.mapping[role]; ok {
				out = append(out, a)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// MappedAuthorities lists every authority the mapping can produce.
func (m *Mapper) MappedAuthorities() []string {
	out := make([]string, 0, len(m.mapping))
	for _, a := range m.mapping {
		out = append(out, a)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (m *Mapper) principalOf(claims *jwtx.Claims) string {
	if m.principal == DefaultPrincipalClaim && claims.PreferredUsername != "" {
		return claims.PreferredUsername
	}
	if v, ok := claims.Lookup(m.principal); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return claims.Subject
}
