package checks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/tenantguard/internal/monitoring"
)

const defaultTimeout = 2 * time.Second

// Database returns a check that pings the RBAC store.
func Database(db *gorm.DB, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.CheckResult {
		start := time.Now()
		if db == nil {
			return monitoring.CheckResult{Status: monitoring.StatusDown, Details: "database not configured"}
		}

		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError("database", err, time.Since(start))
		}

		checkCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout))
		defer cancel()

		return monitoring.ResultFromError("database", sqlDB.PingContext(checkCtx), time.Since(start))
	})
}

func chooseTimeout(provided time.Duration) time.Duration {
	if provided <= 0 {
		return defaultTimeout
	}
	return provided
}
