package checks

import (
	"context"
	"time"

	"github.com/charlesng35/tenantguard/internal/cache"
	"github.com/charlesng35/tenantguard/internal/monitoring"
)

// Pinger is implemented by cache stores backed by a remote server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cache returns a check for the authorization cache store. An unreachable
// remote cache is degraded, not down: lookups fall through to the database.
func Cache(store cache.Store, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("cache", func(ctx context.Context) monitoring.CheckResult {
		start := time.Now()
		if store == nil {
			return monitoring.CheckResult{Status: monitoring.StatusDegraded, Details: "cache not configured"}
		}

		pinger, ok := store.(Pinger)
		if !ok {
			return monitoring.CheckResult{Status: monitoring.StatusUp, Details: "in-process store"}
		}

		checkCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout))
		defer cancel()

		if err := pinger.Ping(checkCtx); err != nil {
			return monitoring.CheckResult{Status: monitoring.StatusDegraded, Details: err.Error(), Duration: time.Since(start)}
		}
		return monitoring.CheckResult{Status: monitoring.StatusUp, Duration: time.Since(start)}
	})
}
