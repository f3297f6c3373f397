package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tenantguard/internal/database"
	"github.com/charlesng35/tenantguard/internal/database/testutil"
	apperrors "github.com/charlesng35/tenantguard/pkg/errors"
)

func TestLastSuperUserIsProtected(t *testing.T) {
	env := newSeededEnv(t)
	ctx := context.Background()
	admin := testutil.MustCreateUser(t, env.db, "platform")
	first := testutil.MustCreateUser(t, env.db, "first")
	second := testutil.MustCreateUser(t, env.db, "second")
	tenant := testutil.MustCreateTenant(t, env.db, "acme")
	super := env.roleByName(t, database.DefaultSuperUserRole)

	_, err := env.tenants.GrantTenantRole(ctx, first.ID, super.ID, tenant.ID)
	require.NoError(t, err)

	err = env.tenants.RevokeTenantRole(ctx, admin.ID, first.ID, super.ID, tenant.ID)
	require.ErrorIs(t, err, apperrors.ErrPolicy)
	require.Equal(t, "at least one super user required", err.Error())
	holders, err := env.tenants.superUserHolders(ctx, tenant.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, holders)

	_, err = env.tenants.GrantTenantRole(ctx, second.ID, super.ID, tenant.ID)
	require.NoError(t, err)

	require.NoError(t, env.tenants.RevokeTenantRole(ctx, admin.ID, first.ID, super.ID, tenant.ID))
	holders, err = env.tenants.superUserHolders(ctx, tenant.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, holders)
}

func TestCannotRemoveOwnSuperUserRole(t *testing.T) {
	env := newSeededEnv(t)
	ctx := context.Background()
	first := testutil.MustCreateUser(t, env.db, "first")
	second := testutil.MustCreateUser(t, env.db, "second")
	tenant := testutil.MustCreateTenant(t, env.db, "acme")
	super := env.roleByName(t, database.DefaultSuperUserRole)

	for _, user := range []string{first.ID, second.ID} {
		_, err := env.tenants.GrantTenantRole(ctx, user, super.ID, tenant.ID)
		require.NoError(t, err)
	}

	err := env.tenants.RevokeTenantRole(ctx, first.ID, first.ID, super.ID, tenant.ID)
	require.ErrorIs(t, err, apperrors.ErrPolicy)
	require.Equal(t, "cannot remove own super user role", err.Error())

	err = env.tenants.SetTenantRoles(ctx, first.ID, first.ID, tenant.ID, nil)
	require.ErrorIs(t, err, apperrors.ErrPolicy)

	roles, err := env.tenants.ListTenantRoles(ctx, first.ID, tenant.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
}

func TestRevokeOtherRolesIsUnrestricted(t *testing.T) {
	env := newSeededEnv(t)
	ctx := context.Background()
	user := testutil.MustCreateUser(t, env.db, "member")
	tenant := testutil.MustCreateTenant(t, env.db, "acme")
	member := env.roleByName(t, "Member")
	super := env.roleByName(t, database.DefaultSuperUserRole)

	_, err := env.tenants.GrantTenantRole(ctx, user.ID, member.ID, tenant.ID)
	require.NoError(t, err)
	require.NoError(t, env.tenants.RevokeTenantRole(ctx, user.ID, user.ID, member.ID, tenant.ID))

	// Revoking a super-user role the user does not hold is a plain not-found.
	err = env.tenants.RevokeTenantRole(ctx, "", user.ID, super.ID, tenant.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSetTenantRolesProtectsLastSuperUser(t *testing.T) {
	env := newSeededEnv(t)
	ctx := context.Background()
	owner := testutil.MustCreateUser(t, env.db, "owner")
	actor := testutil.MustCreateUser(t, env.db, "actor")
	tenant := testutil.MustCreateTenant(t, env.db, "acme")
	member := env.roleByName(t, "Member")
	super := env.roleByName(t, database.DefaultSuperUserRole)

	require.NoError(t, env.tenants.SetTenantRoles(ctx, actor.ID, owner.ID, tenant.ID, []string{super.ID, member.ID}))

	err := env.tenants.SetTenantRoles(ctx, actor.ID, owner.ID, tenant.ID, []string{member.ID})
	require.ErrorIs(t, err, apperrors.ErrPolicy)

	roles, err := env.tenants.ListTenantRoles(ctx, owner.ID, tenant.ID)
	require.NoError(t, err)
	require.Len(t, roles, 2)

	require.NoError(t, env.tenants.SetTenantRoles(ctx, actor.ID, actor.ID, tenant.ID, []string{super.ID}))
	require.NoError(t, env.tenants.SetTenantRoles(ctx, actor.ID, owner.ID, tenant.ID, []string{member.ID}))

	roles, err = env.tenants.ListTenantRoles(ctx, owner.ID, tenant.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	require.Equal(t, "Member", roles[0].Name)
}

func TestCustomSuperUserRoleName(t *testing.T) {
	env := newSeededEnv(t)
	ctx := context.Background()
	user := testutil.MustCreateUser(t, env.db, "member")
	tenant := testutil.MustCreateTenant(t, env.db, "acme")
	member := env.roleByName(t, "Member")

	svc, err := NewTenantAccessService(env.db, env.userRoles, "Owner")
	require.NoError(t, err)
	require.Equal(t, "Owner", svc.SuperUserRole())

	_, err = svc.GrantTenantRole(ctx, user.ID, member.ID, tenant.ID)
	require.NoError(t, err)

	// An unprovisioned role name fails closed rather than disabling the policy.
	_, err = svc.superUserHolders(ctx, tenant.ID)
	require.ErrorIs(t, err, errSuperUserRoleMissing)
	err = svc.RevokeTenantRole(ctx, "", user.ID, member.ID, tenant.ID)
	require.ErrorIs(t, err, errSuperUserRoleMissing)

	roles, err := svc.ListTenantRoles(ctx, user.ID, tenant.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)

	_, err = NewTenantAccessService(env.db, nil, "")
	require.Error(t, err)
}

func TestSuperUserPolicySurvivesRoleRenameAttempt(t *testing.T) {
	env := newSeededEnv(t)
	ctx := context.Background()
	admin := testutil.MustCreateUser(t, env.db, "platform")
	first := testutil.MustCreateUser(t, env.db, "first")
	tenant := testutil.MustCreateTenant(t, env.db, "acme")
	super := env.roleByName(t, database.DefaultSuperUserRole)
	require.True(t, super.IsSystem)

	_, err := env.tenants.GrantTenantRole(ctx, first.ID, super.ID, tenant.ID)
	require.NoError(t, err)

	_, err = env.roles.UpdateRole(ctx, super.ID, UpdateRoleInput{Name: strPtr("Owner")})
	require.ErrorIs(t, err, ErrSystemRoleImmutable)
	require.ErrorIs(t, env.roles.DeleteRole(ctx, super.ID), ErrSystemRoleImmutable)

	err = env.tenants.RevokeTenantRole(ctx, admin.ID, first.ID, super.ID, tenant.ID)
	require.ErrorIs(t, err, apperrors.ErrPolicy)
	require.Equal(t, "at least one super user required", err.Error())

	// A row renamed behind the service's back is no longer the configured role, so mutations stop.
	require.NoError(t, env.db.Model(&super).Update("name", "Owner").Error)
	err = env.tenants.RevokeTenantRole(ctx, admin.ID, first.ID, super.ID, tenant.ID)
	require.ErrorIs(t, err, errSuperUserRoleMissing)

	holders, err := countHolders(env.db, super.ID, tenant.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, holders)
}

func TestRevokeUserRoleAppliesTenantPolicy(t *testing.T) {
	env := newSeededEnv(t)
	ctx := context.Background()
	admin := testutil.MustCreateUser(t, env.db, "platform")
	first := testutil.MustCreateUser(t, env.db, "first")
	tenant := testutil.MustCreateTenant(t, env.db, "acme")
	super := env.roleByName(t, database.DefaultSuperUserRole)
	administrator := env.roleByName(t, "Administrator")

	_, err := env.tenants.GrantTenantRole(ctx, first.ID, super.ID, tenant.ID)
	require.NoError(t, err)
	_, err = env.userRoles.CreateUserRole(ctx, UserRoleInput{UserID: first.ID, RoleID: administrator.ID})
	require.NoError(t, err)

	err = env.tenants.RevokeUserRole(actorContext(admin.ID), admin.ID, UserRoleInput{UserID: first.ID, RoleID: super.ID, TenantID: &tenant.ID})
	require.ErrorIs(t, err, apperrors.ErrPolicy)

	blank := " "
	require.NoError(t, env.tenants.RevokeUserRole(ctx, admin.ID, UserRoleInput{UserID: first.ID, RoleID: administrator.ID, TenantID: &blank}))
	require.False(t, env.isAdmin(t, first.ID))

	holders, err := env.tenants.superUserHolders(ctx, tenant.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, holders)
}

func TestSetUserRolesAppliesTenantPolicy(t *testing.T) {
	env := newSeededEnv(t)
	ctx := context.Background()
	admin := testutil.MustCreateUser(t, env.db, "platform")
	first := testutil.MustCreateUser(t, env.db, "first")
	second := testutil.MustCreateUser(t, env.db, "second")
	acme := testutil.MustCreateTenant(t, env.db, "acme")
	globex := testutil.MustCreateTenant(t, env.db, "globex")
	super := env.roleByName(t, database.DefaultSuperUserRole)
	member := env.roleByName(t, "Member")

	for _, tenantID := range []string{acme.ID, globex.ID} {
		_, err := env.tenants.GrantTenantRole(ctx, first.ID, super.ID, tenantID)
		require.NoError(t, err)
	}
	_, err := env.tenants.GrantTenantRole(ctx, second.ID, super.ID, globex.ID)
	require.NoError(t, err)

	// Dropping acme would leave it without a super user.
	err = env.tenants.SetUserRoles(ctx, admin.ID, first.ID, []Assignment{{RoleID: member.ID, TenantID: &acme.ID}})
	require.ErrorIs(t, err, apperrors.ErrPolicy)
	require.EqualValues(t, 2, env.countUserRoles(t, first.ID))

	// Keeping acme while dropping globex is allowed because second still holds it there.
	require.NoError(t, env.tenants.SetUserRoles(ctx, admin.ID, first.ID, []Assignment{
		{RoleID: super.ID, TenantID: &acme.ID},
		{RoleID: member.ID, TenantID: &globex.ID},
	}))

	holders, err := env.tenants.superUserHolders(ctx, globex.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, holders)

	err = env.tenants.SetUserRoles(ctx, second.ID, second.ID, nil)
	require.ErrorIs(t, err, apperrors.ErrPolicy)
	require.Equal(t, "cannot remove own super user role", err.Error())
}

func TestTenantExists(t *testing.T) {
	env := newTestEnv(t)
	tenant := testutil.MustCreateTenant(t, env.db, "acme")

	exists, err := env.tenants.TenantExists(context.Background(), tenant.ID)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = env.tenants.TenantExists(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, exists)
}
