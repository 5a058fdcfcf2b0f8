// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Cache manager metrics.
	MetricPuts       = "appstash_puts_total"
	MetricGets       = "appstash_gets_total"
	MetricHits       = "appstash_hits_total"
	MetricMisses     = "appstash_misses_total"
	MetricDeletes    = "appstash_deletes_total"
	MetricScopeScans = "appstash_scope_scans_total"

	// Reconciliation metrics.
	MetricReconciles          = "appstash_reconciles_total"
	MetricReconcileToLoad     = "appstash_reconcile_to_load"
	MetricReconcileUnchanged  = "appstash_reconcile_unchanged"
	MetricReconcileToRemove   = "appstash_reconcile_to_remove"
	MetricReconcileCachedApps = "appstash_reconcile_cached_apps"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
