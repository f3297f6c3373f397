package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tenantguard/internal/api"
	"github.com/charlesng35/tenantguard/internal/app"
	"github.com/charlesng35/tenantguard/internal/app/maintenance"
	iauth "github.com/charlesng35/tenantguard/internal/auth"
	"github.com/charlesng35/tenantguard/internal/cache"
	"github.com/charlesng35/tenantguard/internal/database"
	"github.com/charlesng35/tenantguard/internal/permissions"
	"github.com/charlesng35/tenantguard/internal/services"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Store   cache.Store
	Gate    *permissions.Gate
	Audit   *services.AuditService
	Cleaner *maintenance.Cleaner
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, cache, services and HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	stack.Store, err = cfg.Cache.NewStore(ctx, stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise cache store: %w", err)
	}
	log.Info("authorization cache ready", zap.String("backend", cacheBackend(cfg)))

	authzCache := cache.NewAuthorizationCache(stack.Store, cfg.Cache.TTL)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		Audience:       cfg.Auth.JWT.Audience,
		AccessTokenTTL: cfg.Auth.JWT.TTL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	stack.Audit, err = services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}
	roles, err := services.NewRoleService(stack.DB, authzCache, stack.Audit)
	if err != nil {
		return nil, fmt.Errorf("initialise role service: %w", err)
	}
	perms, err := services.NewPermissionService(stack.DB, authzCache, stack.Audit)
	if err != nil {
		return nil, fmt.Errorf("initialise permission service: %w", err)
	}
	userRoles, err := services.NewUserRoleService(stack.DB, authzCache, stack.Audit)
	if err != nil {
		return nil, fmt.Errorf("initialise user role service: %w", err)
	}
	tenants, err := services.NewTenantAccessService(stack.DB, userRoles, cfg.RBAC.SuperUserRole)
	if err != nil {
		return nil, fmt.Errorf("initialise tenant access service: %w", err)
	}

	resolver, err := permissions.NewResolver(stack.DB, authzCache)
	if err != nil {
		return nil, fmt.Errorf("initialise permission resolver: %w", err)
	}
	stack.Gate, err = permissions.NewGate(resolver)
	if err != nil {
		return nil, fmt.Errorf("initialise permission gate: %w", err)
	}

	if cfg.Maintenance.Enabled {
		stack.Cleaner = newCleaner(cfg, stack.Store, stack.Audit)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:          stack.DB,
		JWT:         jwtSvc,
		Gate:        stack.Gate,
		Roles:       roles,
		Permissions: perms,
		UserRoles:   userRoles,
		Tenants:     tenants,
		Audit:       stack.Audit,
		Cache:       stack.Store,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// newCleaner schedules audit retention, plus expired row purging when the cache lives in the database.
func newCleaner(cfg *app.Config, store cache.Store, audit *services.AuditService) *maintenance.Cleaner {
	opts := []maintenance.Option{
		maintenance.WithCacheSchedule(cfg.Maintenance.CacheSchedule),
		maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
	}

	var purger maintenance.ExpiredPurger
	if dbStore, ok := store.(*cache.DatabaseStore); ok && dbStore != nil {
		purger = dbStore
	}
	return maintenance.NewCleaner(purger, audit, opts...)
}

// Shutdown stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		<-s.Cleaner.Stop().Done()
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Store != nil {
		if err := s.Store.Close(); err != nil {
			log.Warn("cache shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func initialiseDatabase(cfg *app.Config, log *zap.Logger) (*gorm.DB, error) {
	dbCfg := cfg.DatabaseConnection()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	seed := database.SeedOptions{
		Permissions:   permissions.Catalog(),
		SuperUserRole: cfg.RBAC.SuperUserRole,
	}
	if err := database.AutoMigrateAndSeed(db, seed); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log.Info("database connected", zap.String("driver", strings.ToLower(dbCfg.Driver)))
	return db, nil
}

func cacheBackend(cfg *app.Config) string {
	backend := strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
	if backend == "" {
		return app.CacheBackendMemory
	}
	return backend
}
