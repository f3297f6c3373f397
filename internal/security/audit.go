package security

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	iauth "github.com/charlesng35/tenantguard/internal/auth"
	"github.com/charlesng35/tenantguard/internal/models"
)

// CheckStatus captures the outcome of a posture check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Check contains the result of a single verification.
type Check struct {
	ID          string      `json:"id"`
	Status      CheckStatus `json:"status"`
	Message     string      `json:"message"`
	Remediation string      `json:"remediation,omitempty"`
	Details     any         `json:"details,omitempty"`
}

// Result aggregates all checks with a status summary.
type Result struct {
	CheckedAt time.Time      `json:"checked_at"`
	Checks    []Check        `json:"checks"`
	Summary   map[string]int `json:"summary"`
}

// Auditor inspects the authorization graph for states that lock operators out
// or silently grant nothing.
type Auditor struct {
	db            *gorm.DB
	jwt           *iauth.JWTService
	superUserRole string
	now           func() time.Time
}

// NewAuditor constructs the posture auditor. Missing inputs degrade the affected checks to warnings.
func NewAuditor(db *gorm.DB, jwt *iauth.JWTService, superUserRole string) *Auditor {
	return &Auditor{
		db:            db,
		jwt:           jwt,
		superUserRole: superUserRole,
		now:           time.Now,
	}
}

// WithClock overrides the clock used in results.
func (a *Auditor) WithClock(clock func() time.Time) {
	if clock != nil {
		a.now = clock
	}
}

// Run executes all checks.
func (a *Auditor) Run(ctx context.Context) Result {
	if ctx == nil {
		ctx = context.Background()
	}

	checks := []Check{
		a.checkAdminPresent(ctx),
		a.checkTenantSuperUsers(ctx),
		a.checkEmptyRoles(ctx),
		a.checkJWTSecret(),
	}

	summary := map[string]int{
		string(StatusPass): 0,
		string(StatusWarn): 0,
		string(StatusFail): 0,
	}
	for _, check := range checks {
		summary[string(check.Status)]++
	}

	return Result{
		CheckedAt: a.now().UTC(),
		Checks:    checks,
		Summary:   summary,
	}
}

func dbUnavailable(id string) Check {
	return Check{
		ID:          id,
		Status:      StatusWarn,
		Message:     "Database unavailable, check skipped.",
		Remediation: "Ensure database connectivity before running the audit.",
	}
}

func queryFailed(id string, err error) Check {
	return Check{
		ID:          id,
		Status:      StatusWarn,
		Message:     fmt.Sprintf("Check could not complete: %v", err),
		Remediation: "Retry after resolving database errors.",
	}
}

func (a *Auditor) checkAdminPresent(ctx context.Context) Check {
	const id = "admin_holder_present"
	if a.db == nil {
		return dbUnavailable(id)
	}

	var count int64
	if err := a.db.WithContext(ctx).Model(&models.User{}).Where("admin = ?", true).Count(&count).Error; err != nil {
		return queryFailed(id, err)
	}

	if count == 0 {
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     "No user holds an admin-realm role.",
			Remediation: "Grant the Administrator role to at least one operator.",
		}
	}
	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: "Admin-realm role holders present.",
		Details: map[string]any{"count": count},
	}
}

func (a *Auditor) checkTenantSuperUsers(ctx context.Context) Check {
	const id = "tenant_super_user_present"
	if a.db == nil {
		return dbUnavailable(id)
	}

	db := a.db.WithContext(ctx)
	holders := db.Table("user_roles AS ur").
		Select("1").
		Joins("JOIN roles r ON r.id = ur.role_id").
		Where("ur.tenant_id = tenants.id AND r.name = ? AND r.is_system = ?", a.superUserRole, true)

	var orphaned []string
	if err := db.Model(&models.Tenant{}).
		Where("NOT EXISTS (?)", holders).
		Order("slug").
		Pluck("slug", &orphaned).Error; err != nil {
		return queryFailed(id, err)
	}

	if len(orphaned) > 0 {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("%d tenant(s) have no %s.", len(orphaned), a.superUserRole),
			Remediation: "Grant the super-user role in each listed tenant so members can be managed.",
			Details:     map[string]any{"tenants": orphaned},
		}
	}
	return Check{
		ID:      id,
		Status:  StatusPass,
		Message: fmt.Sprintf("Every tenant has a %s.", a.superUserRole),
	}
}

func (a *Auditor) checkEmptyRoles(ctx context.Context) Check {
	const id = "roles_without_permissions"
	if a.db == nil {
		return dbUnavailable(id)
	}

	db := a.db.WithContext(ctx)
	grants := db.Table("role_permissions AS rp").Select("1").Where("rp.role_id = roles.id")

	var empty []string
	if err := db.Model(&models.Role{}).
		Where("NOT EXISTS (?)", grants).
		Order("name").
		Pluck("name", &empty).Error; err != nil {
		return queryFailed(id, err)
	}

	if len(empty) > 0 {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("%d role(s) grant no permissions.", len(empty)),
			Remediation: "Attach permissions or delete the listed roles.",
			Details:     map[string]any{"roles": empty},
		}
	}
	return Check{ID: id, Status: StatusPass, Message: "Every role grants at least one permission."}
}

func (a *Auditor) checkJWTSecret() Check {
	const id = "jwt_secret_strength"
	if a.jwt == nil {
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     "JWT service not initialised, unable to assess signing secret strength.",
			Remediation: "Initialise the JWT service with a strong secret.",
		}
	}

	length := a.jwt.SecretLength()
	switch {
	case length < 32:
		return Check{
			ID:          id,
			Status:      StatusFail,
			Message:     fmt.Sprintf("JWT signing secret is too short (%d bytes).", length),
			Remediation: "Use a randomly generated secret of at least 32 bytes.",
		}
	case length < 48:
		return Check{
			ID:          id,
			Status:      StatusWarn,
			Message:     fmt.Sprintf("JWT signing secret is %d bytes. Consider increasing to 48+ bytes.", length),
			Remediation: "Increase TENANTGUARD_AUTH_JWT_SECRET to at least 48 bytes.",
			Details:     map[string]any{"length": length},
		}
	default:
		return Check{
			ID:      id,
			Status:  StatusPass,
			Message: fmt.Sprintf("JWT signing secret length is %d bytes.", length),
			Details: map[string]any{"length": length},
		}
	}
}
