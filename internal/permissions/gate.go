package permissions

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/charlesng35/tenantguard/internal/models"
	"github.com/charlesng35/tenantguard/internal/sessionctx"
	apperrors "github.com/charlesng35/tenantguard/pkg/errors"
	"github.com/charlesng35/tenantguard/pkg/logger"
	"github.com/charlesng35/tenantguard/pkg/metrics"
)

// Gate is the enforcement entry point every protected operation calls before side effects.
type Gate struct {
	resolver *Resolver
	log      *zap.Logger
}

// NewGate constructs a gate over resolver.
func NewGate(resolver *Resolver) (*Gate, error) {
	if resolver == nil {
		return nil, errors.New("permission gate: resolver is required")
	}
	return &Gate{resolver: resolver, log: logger.WithModule("permission-gate")}, nil
}

// Resolver exposes the underlying resolver for UI-authorization helpers.
func (g *Gate) Resolver() *Resolver {
	return g.resolver
}

// VerifyHasPermission checks that the caller in ctx holds name in tenantID (admin realm when nil).
// A name absent from the catalog is allowed so checks can ship before their permission is seeded.
// Any resolution failure denies.
func (g *Gate) VerifyHasPermission(ctx context.Context, name string, tenantID *string) error {
	realm := string(models.RealmForTenant(tenantID))

	session, ok := sessionctx.FromContext(ctx)
	if !ok {
		metrics.PermissionChecks.WithLabelValues(realm, "denied").Inc()
		return apperrors.ErrUnauthorized
	}
	if err := ctx.Err(); err != nil {
		metrics.PermissionChecks.WithLabelValues(realm, "error").Inc()
		return err
	}

	perm, err := g.resolver.LookupPermission(ctx, name)
	if err != nil {
		metrics.PermissionChecks.WithLabelValues(realm, "error").Inc()
		g.log.Warn("permission lookup failed", zap.String("permission", name), zap.Error(err))
		return err
	}
	if perm == nil {
		metrics.PermissionChecks.WithLabelValues(realm, "undefined").Inc()
		g.log.Debug("permission not in catalog, allowing", zap.String("permission", name))
		return nil
	}

	set, err := g.resolver.Resolve(ctx, session.UserID, tenantID)
	if err != nil {
		metrics.PermissionChecks.WithLabelValues(realm, "error").Inc()
		g.log.Warn("permission resolution failed",
			zap.String("permission", name),
			zap.String("user_id", session.UserID),
			zap.Error(err),
		)
		return err
	}

	if !set.Has(name) {
		metrics.PermissionChecks.WithLabelValues(realm, "denied").Inc()
		return apperrors.ErrForbidden
	}

	metrics.PermissionChecks.WithLabelValues(realm, "allowed").Inc()
	return nil
}

// HasPermission is the boolean form of VerifyHasPermission for hiding UI affordances.
// Infrastructure failures are still returned so callers can fail closed.
func (g *Gate) HasPermission(ctx context.Context, name string, tenantID *string) (bool, error) {
	err := g.VerifyHasPermission(ctx, name, tenantID)
	switch {
	case err == nil:
		return true, nil
	case apperrors.IsUnauthorized(err):
		return false, nil
	default:
		return false, err
	}
}
