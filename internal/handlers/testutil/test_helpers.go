package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tenantguard/internal/api"
	iauth "github.com/charlesng35/tenantguard/internal/auth"
	"github.com/charlesng35/tenantguard/internal/cache"
	"github.com/charlesng35/tenantguard/internal/database"
	sharedtestutil "github.com/charlesng35/tenantguard/internal/database/testutil"
	"github.com/charlesng35/tenantguard/internal/models"
	"github.com/charlesng35/tenantguard/internal/permissions"
	"github.com/charlesng35/tenantguard/internal/services"
	"github.com/charlesng35/tenantguard/pkg/response"
)

// Env is a fully wired API backed by a seeded in-memory database.
type Env struct {
	T         *testing.T
	DB        *gorm.DB
	Router    *gin.Engine
	JWT       *iauth.JWTService
	UserRoles *services.UserRoleService
}

// NewEnv provisions a fresh handler test environment with the built-in catalog and roles.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithSeedData(permissions.Catalog()))

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "handler-suite-secret", AccessTokenTTL: time.Hour})
	require.NoError(t, err)

	store := cache.NewMemoryStore(512, time.Minute)
	authzCache := cache.NewAuthorizationCache(store, time.Minute)

	audit, err := services.NewAuditService(db)
	require.NoError(t, err)
	roles, err := services.NewRoleService(db, authzCache, audit)
	require.NoError(t, err)
	perms, err := services.NewPermissionService(db, authzCache, audit)
	require.NoError(t, err)
	userRoles, err := services.NewUserRoleService(db, authzCache, audit)
	require.NoError(t, err)
	tenants, err := services.NewTenantAccessService(db, userRoles, database.DefaultSuperUserRole)
	require.NoError(t, err)
	resolver, err := permissions.NewResolver(db, authzCache)
	require.NoError(t, err)
	gate, err := permissions.NewGate(resolver)
	require.NoError(t, err)

	router, err := api.NewRouter(api.Dependencies{
		DB:          db,
		JWT:         jwtSvc,
		Gate:        gate,
		Roles:       roles,
		Permissions: perms,
		UserRoles:   userRoles,
		Tenants:     tenants,
		Audit:       audit,
		Cache:       store,
	})
	require.NoError(t, err)

	return &Env{T: t, DB: db, Router: router, JWT: jwtSvc, UserRoles: userRoles}
}

// CreateUser inserts a user without roles.
func (e *Env) CreateUser(name string) models.User {
	e.T.Helper()
	return sharedtestutil.MustCreateUser(e.T, e.DB, name)
}

// CreateTenant inserts a tenant.
func (e *Env) CreateTenant(name string) models.Tenant {
	e.T.Helper()
	return sharedtestutil.MustCreateTenant(e.T, e.DB, name)
}

// CreateAdmin inserts a user holding the seeded Administrator role.
func (e *Env) CreateAdmin(name string) models.User {
	e.T.Helper()

	user := e.CreateUser(name)
	e.Grant(user.ID, "Administrator", nil)
	return user
}

// Grant assigns the named seeded role, in tenantID for app-realm roles.
func (e *Env) Grant(userID, roleName string, tenantID *string) {
	e.T.Helper()

	_, err := e.UserRoles.CreateUserRole(context.Background(), services.UserRoleInput{
		UserID:   userID,
		RoleID:   e.RoleID(roleName),
		TenantID: tenantID,
	})
	require.NoError(e.T, err)
}

// RoleID looks up a role by name.
func (e *Env) RoleID(name string) string {
	e.T.Helper()

	var role models.Role
	require.NoError(e.T, e.DB.Where("name = ?", name).Take(&role).Error)
	return role.ID
}

// Token issues an access token for userID.
func (e *Env) Token(userID string) string {
	e.T.Helper()

	token, err := e.JWT.GenerateAccessToken(iauth.Identity{UserID: userID})
	require.NoError(e.T, err)
	return token
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
