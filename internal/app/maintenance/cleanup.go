package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/tenantguard/internal/services"
	"github.com/charlesng35/tenantguard/pkg/logger"
)

const (
	defaultAuditRetentionDays = 90
	defaultCacheSpec          = "@every 10m"
	defaultAuditSpec          = "@daily"
)

// ExpiredPurger is implemented by cache stores that do not expire entries on their own,
// such as the database store.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Cleaner runs background maintenance: purging expired cache rows and enforcing
// audit retention.
type Cleaner struct {
	purger    ExpiredPurger
	audit     *services.AuditService
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention int

	cacheSchedule string
	auditSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache purging.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner. A nil dependency skips the corresponding job.
func NewCleaner(purger ExpiredPurger, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		purger:        purger,
		audit:         audit,
		now:           time.Now,
		retention:     defaultAuditRetentionDays,
		cacheSchedule: defaultCacheSpec,
		auditSchedule: defaultAuditSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

func (c *Cleaner) enabled() bool {
	return c.purger != nil || c.audit != nil
}

// Start registers the jobs and launches the scheduler when at least one job is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled() {
		return nil
	}

	if c.purger != nil {
		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			if _, err := c.purgeCache(context.Background()); err != nil {
				c.log.Warn("cache purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.audit != nil {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			if _, err := c.audit.CleanupOlderThan(context.Background(), c.retention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the scheduler. The returned context is done once running jobs complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured job sequentially and aggregates their failures.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.purger != nil {
		if _, err := c.purgeCache(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if c.audit != nil {
		if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *Cleaner) purgeCache(ctx context.Context) (int64, error) {
	removed, err := c.purger.PurgeExpired(ctx, c.now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		c.log.Debug("purged expired cache entries", zap.Int64("count", removed))
	}
	return removed, nil
}
