package api_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tenantguard/internal/api"
	"github.com/charlesng35/tenantguard/internal/handlers/testutil"
)

func TestNewRouterRequiresDependencies(t *testing.T) {
	_, err := api.NewRouter(api.Dependencies{})
	require.Error(t, err)
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	env := testutil.NewEnv(t)

	for _, path := range []string{"/health", "/api/health"} {
		w := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		require.Equal(t, "no-store", w.Header().Get("Cache-Control"), path)
	}

	for _, path := range []string{"/api/admin/roles", "/api/admin/permissions", "/api/me/permissions", "/api/admin/audit"} {
		w := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	for _, path := range []string{"/nowhere", "/api/unknown"} {
		w := env.Request(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	env := testutil.NewEnv(t)
	user := env.CreateUser("viewer")

	// Drive one permission check so the counter family is exported.
	env.Request(http.MethodGet, "/api/admin/roles", nil, env.Token(user.ID))

	w := env.Request(http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "tenantguard_permission_checks_total")
	require.Contains(t, w.Body.String(), "tenantguard_api_latency_seconds")
}
