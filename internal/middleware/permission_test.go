package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tenantguard/internal/cache"
	"github.com/charlesng35/tenantguard/internal/database/testutil"
	"github.com/charlesng35/tenantguard/internal/models"
	"github.com/charlesng35/tenantguard/internal/permissions"
)

type gateFixture struct {
	db      *gorm.DB
	gate    *permissions.Gate
	analyst models.User
	admin   models.User
	t1      models.Tenant
	t2      models.Tenant
}

func grant(t *testing.T, db *gorm.DB, user models.User, tenantID *string, realm models.Realm, name string) {
	t.Helper()

	perm := models.Permission{Name: name, Realm: realm, Order: 1}
	require.NoError(t, db.Where(models.Permission{Name: name}).FirstOrCreate(&perm).Error)
	role := models.Role{Name: name + " holder", Realm: realm, Order: 1}
	require.NoError(t, db.Create(&role).Error)
	require.NoError(t, db.Create(&models.RolePermission{RoleID: role.ID, PermissionID: perm.ID}).Error)
	require.NoError(t, db.Create(&models.UserRole{UserID: user.ID, RoleID: role.ID, TenantID: tenantID}).Error)
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	resolver, err := permissions.NewResolver(db, cache.NewAuthorizationCache(nil, 0))
	require.NoError(t, err)
	gate, err := permissions.NewGate(resolver)
	require.NoError(t, err)

	f := &gateFixture{
		db:      db,
		gate:    gate,
		analyst: testutil.MustCreateUser(t, db, "analyst"),
		admin:   testutil.MustCreateUser(t, db, "admin"),
		t1:      testutil.MustCreateTenant(t, db, "t1"),
		t2:      testutil.MustCreateTenant(t, db, "t2"),
	}
	grant(t, db, f.analyst, &f.t1.ID, models.RealmApp, "reports.view")
	grant(t, db, f.admin, nil, models.RealmAdmin, "admin.roles.view")
	return f
}

func TestRequirePermission(t *testing.T) {
	f := newGateFixture(t)

	for _, tc := range []struct {
		user   string
		status int
	}{
		{f.admin.ID, http.StatusOK},
		{f.analyst.ID, http.StatusForbidden},
		{"", http.StatusUnauthorized},
	} {
		r := gin.New()
		r.GET("/admin/roles", withUser(tc.user), RequirePermission(f.gate, "admin.roles.view"), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/roles", nil))
		require.Equal(t, tc.status, w.Code, "user %q", tc.user)
		if tc.status == http.StatusForbidden {
			require.NotContains(t, w.Body.String(), "admin.roles.view")
		}
	}
}

func TestRequireTenantPermission(t *testing.T) {
	f := newGateFixture(t)
	finder := tenantFinderFunc(func(_ context.Context, tenantID string) (bool, error) {
		return tenantID == f.t1.ID || tenantID == f.t2.ID, nil
	})

	r := gin.New()
	r.GET("/tenants/:tenantID/reports", withUser(f.analyst.ID), Tenant(finder),
		RequireTenantPermission(f.gate, "reports.view"),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)
	r.GET("/unscoped", withUser(f.analyst.ID), RequireTenantPermission(f.gate, "reports.view"),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tenants/"+f.t1.ID+"/reports", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tenants/"+f.t2.ID+"/reports", nil))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unscoped", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
