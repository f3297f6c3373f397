package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// HealthStatus encodes the outcome of a health check.
type HealthStatus string

const (
	StatusUp       HealthStatus = "up"
	StatusDown     HealthStatus = "down"
	StatusDegraded HealthStatus = "degraded"
)

// CheckResult captures a single dependency check outcome.
type CheckResult struct {
	Component string        `json:"component"`
	Status    HealthStatus  `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport aggregates check results. Status is the worst status observed.
type HealthReport struct {
	Status HealthStatus  `json:"status"`
	Checks []CheckResult `json:"checks"`
}

// Healthy reports whether the service can serve authorization decisions.
// A degraded dependency (for example a slow cache) still serves.
func (r HealthReport) Healthy() bool {
	return r.Status != StatusDown
}

// Check encapsulates a single dependency check.
type Check struct {
	Name string
	Run  func(ctx context.Context) CheckResult
}

// NewCheck constructs a health check with the provided name and function.
func NewCheck(name string, fn func(ctx context.Context) CheckResult) Check {
	if fn == nil {
		fn = func(context.Context) CheckResult {
			return CheckResult{Status: StatusDown, Details: "check not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

// HealthManager runs the registered readiness checks.
type HealthManager struct {
	mu     sync.RWMutex
	checks []Check
}

// NewHealthManager constructs a manager with the given checks.
func NewHealthManager(checks ...Check) *HealthManager {
	m := &HealthManager{}
	for _, check := range checks {
		m.Register(check)
	}
	return m
}

// Register appends a check. Unnamed checks are ignored.
func (m *HealthManager) Register(check Check) {
	if check.Name == "" {
		return
	}
	m.mu.Lock()
	m.checks = append(m.checks, check)
	m.mu.Unlock()
}

// Evaluate executes every check in registration order.
func (m *HealthManager) Evaluate(ctx context.Context) HealthReport {
	m.mu.RLock()
	checks := append([]Check(nil), m.checks...)
	m.mu.RUnlock()

	report := HealthReport{Status: StatusUp, Checks: make([]CheckResult, 0, len(checks))}
	for _, check := range checks {
		result := runCheck(ctx, check)
		report.Checks = append(report.Checks, result)

		switch result.Status {
		case StatusDown:
			report.Status = StatusDown
		case StatusDegraded:
			if report.Status != StatusDown {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

func runCheck(ctx context.Context, check Check) (result CheckResult) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			result = CheckResult{Status: StatusDown, Details: fmt.Sprint(rec)}
		}
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
		result.Component = check.Name
	}()

	return check.Run(ctx)
}

// ResultFromError converts an error into a CheckResult. Timeouts count as degraded.
func ResultFromError(component string, err error, duration time.Duration) CheckResult {
	if duration < 0 {
		duration = 0
	}
	if err == nil {
		return CheckResult{Component: component, Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}

	return CheckResult{
		Component: component,
		Status:    status,
		Details:   err.Error(),
		Duration:  duration,
	}
}
