//go:build e2e

package keycloak_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/bouncer/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestReadyzAfterKeyWarmup verifies the key warmer loads the realm's JWKS
// without any token being presented.
func TestReadyzAfterKeyWarmup(t *testing.T) {
	baseURL := setupBouncer(t, nil)
	client := authsdk.NewSDKClient(baseURL)

	var health *authsdk.HealthResponse
	require.Eventually(t, func() bool {
		var err error
		health, err = client.GetReadiness(t.Context())
		return err == nil
	}, 10*time.Second, 100*time.Millisecond)

	require.Equal(t, "ok", health.Status)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.JWKS)
	require.Equal(t, "ok", health.Checks.Database)
}

// TestProtectedResourceMetadata verifies clients can discover the realm.
func TestProtectedResourceMetadata(t *testing.T) {
	baseURL := setupBouncer(t, nil)
	client := authsdk.NewSDKClient(baseURL)

	meta, err := client.GetResourceMetadata(t.Context())
	require.NoError(t, err)

	require.Equal(t, baseURL, meta.Resource)
	require.Equal(t, []string{issuer}, meta.AuthorizationServers)
	require.Contains(t, meta.SigningAlgValues, "RS256")
}

// TestStartupFailsWithUnknownRealm verifies discovery errors stop startup
// instead of serving with no keys.
func TestStartupFailsWithUnknownRealm(t *testing.T) {
	t.Setenv("BOUNCER_ISSUER_URL", issuer+"-missing")
	t.Setenv("BOUNCER_AUDIENCE", apiAudience)
	t.Setenv("BOUNCER_POLICY_FILE", "../../../configs/policy.yaml")
	t.Setenv("BOUNCER_DATABASE_FILE", t.TempDir()+"/bouncer.db")

	requireStartupError(t, "discover JWKS URI")
}
