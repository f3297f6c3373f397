package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts gate evaluations by outcome (allowed|denied|undefined|error).
	// The permission name is intentionally not a label to keep cardinality bounded.
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantguard_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"realm", "result"},
	)

	// CacheLookups records authorization cache reads per key namespace (hit|miss|error).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantguard_cache_lookups_total",
			Help: "Authorization cache lookups",
		},
		[]string{"namespace", "result"},
	)

	// CacheInvalidations records keys deleted by mutations per key namespace.
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantguard_cache_invalidations_total",
			Help: "Authorization cache keys invalidated",
		},
		[]string{"namespace"},
	)

	// Mutations counts RBAC graph mutations by operation and result (success|failure).
	Mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenantguard_rbac_mutations_total",
			Help: "RBAC mutation operations",
		},
		[]string{"operation", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tenantguard_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
