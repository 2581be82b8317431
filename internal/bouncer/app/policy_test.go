package app

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/aussiebroadwan/bouncer/pkg/authz"
	"github.com/stretchr/testify/require"
)

func repoPolicy(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "configs", "policy.yaml")
}

func TestLoadPolicy_ShippedPolicy(t *testing.T) {
	p, err := LoadPolicy(repoPolicy(t))
	require.NoError(t, err)

	require.Equal(t, "ROLE_ADMIN", p.RoleMapping["admin"])
	require.Equal(t, "ROLE_ONBOARDING", p.RoleMapping["onboarding"])

	enforcer, err := authz.NewEnforcer(p.Policy())
	require.NoError(t, err)

	member := &authz.Identity{Subject: "u1", Authorities: []string{"ROLE_USER"}}
	admin := &authz.Identity{Subject: "u2", Authorities: []string{"ROLE_ADMIN"}}
	onboarding := &authz.Identity{Subject: "u3", Authorities: []string{"ROLE_ONBOARDING"}}

	tests := []struct {
		name     string
		id       *authz.Identity
		resource string
		action   string
		allow    bool
		reason   string
	}{
		{"anonymous public", nil, "/api/public/posts", "GET", true, authz.ReasonPublic},
		{"anonymous login", nil, "/api/auth/login", "POST", true, authz.ReasonPublic},
		{"anonymous registration", nil, "/api/users/register", "POST", true, authz.ReasonPublic},
		{"anonymous profile", nil, "/api/users/me", "GET", false, authz.ReasonUnauthenticated},
		{"onboarding public", onboarding, "/api/public/info", "GET", true, authz.ReasonPublic},
		{"anonymous secure", nil, "/api/secure/user-info", "GET", false, authz.ReasonUnauthenticated},
		{"member secure", member, "/api/secure/user-info", "GET", true, authz.ReasonGranted},
		{"member admin-only", member, "/api/secure/admin-only", "GET", false, authz.ReasonInsufficientAuthority},
		{"admin admin-only", admin, "/api/secure/admin-only", "GET", true, authz.ReasonGranted},
		{"member audit log", member, "/api/admin/decisions", "GET", false, authz.ReasonInsufficientAuthority},
		{"admin audit log", admin, "/api/admin/decisions", "GET", true, authz.ReasonGranted},
		{"onboarding registration", onboarding, "/api/users/me", "PUT", true, authz.ReasonGranted},
		{"onboarding elsewhere", onboarding, "/api/secure/user-info", "GET", false, authz.ReasonConfined},
		{"unmatched", admin, "/internal/debug", "GET", false, authz.ReasonNoMatchingRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := enforcer.Authorize(tt.id, tt.resource, tt.action)
			require.Equal(t, tt.allow, d.Allow)
			require.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestParsePolicy(t *testing.T) {
	t.Run("rejects unknown keys", func(t *testing.T) {
		_, err := ParsePolicy([]byte("rules:\n  - resource: /a\n    actions: [GET]\n    authority: [X]\n"))
		require.Error(t, err)
	})

	t.Run("rejects empty rule set", func(t *testing.T) {
		_, err := ParsePolicy([]byte("roleMapping:\n  admin: ROLE_ADMIN\n"))
		require.ErrorContains(t, err, "no rules")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestMergeRoleMapping(t *testing.T) {
	got := mergeRoleMapping(
		map[string]string{"admin": "ROLE_ADMIN", "forum_member": "ROLE_USER"},
		map[string]string{"forum_member": "ROLE_MEMBER"},
	)
	require.Equal(t, map[string]string{"admin": "ROLE_ADMIN", "forum_member": "ROLE_MEMBER"}, got)
}
