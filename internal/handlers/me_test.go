package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tenantguard/internal/handlers/testutil"
	"github.com/charlesng35/tenantguard/internal/permissions"
)

type mePermissions struct {
	TenantID    *string  `json:"tenant_id"`
	Permissions []string `json:"permissions"`
}

type checkResult struct {
	Name    string `json:"name"`
	Allowed bool   `json:"allowed"`
}

func TestMePermissionsPerTenant(t *testing.T) {
	env := testutil.NewEnv(t)
	t1 := env.CreateTenant("t1")
	t2 := env.CreateTenant("t2")
	user := env.CreateUser("member")
	env.Grant(user.ID, "Member", &t1.ID)
	token := env.Token(user.ID)

	w := env.Request(http.MethodGet, "/api/me/permissions?tenant="+t1.ID, nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got mePermissions
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &got)
	require.Equal(t, []string{permissions.AppMembersView}, got.Permissions)

	w = env.Request(http.MethodGet, "/api/me/permissions?tenant="+t2.ID, nil, token)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &got)
	require.Empty(t, got.Permissions)

	w = env.Request(http.MethodGet, "/api/me/permissions", nil, token)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &got)
	require.Nil(t, got.TenantID)
	require.Empty(t, got.Permissions)

	w = env.Request(http.MethodGet, "/api/me/permissions", nil, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMePermissionCheck(t *testing.T) {
	env := testutil.NewEnv(t)
	tenant := env.CreateTenant("acme")
	user := env.CreateUser("member")
	env.Grant(user.ID, "Member", &tenant.ID)
	token := env.Token(user.ID)

	check := func(query string) checkResult {
		t.Helper()
		w := env.Request(http.MethodGet, "/api/me/permissions/check?"+query, nil, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var result checkResult
		testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &result)
		return result
	}

	require.True(t, check("name="+permissions.AppMembersView+"&tenant="+tenant.ID).Allowed)
	require.False(t, check("name="+permissions.AppMembersRolesUpdate+"&tenant="+tenant.ID).Allowed)
	require.False(t, check("name="+permissions.AdminRolesView).Allowed)
	require.True(t, check("name=not.in.catalog").Allowed)

	w := env.Request(http.MethodGet, "/api/me/permissions/check", nil, token)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
