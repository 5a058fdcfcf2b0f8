package appstash

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/appstash/appstash/internal/stats"
)

// DefaultMaxCacheAge is the staleness threshold applied when
// IsCacheValid is given a non-positive max age.
const DefaultMaxCacheAge = 24 * time.Hour

// ReconcileResult is the three-way classification of remote apps
// against cached records. The three sets are disjoint.
type ReconcileResult struct {
	// ToLoad holds remote apps that need a full load: either no cached
	// counterpart exists or the remote update timestamp differs from
	// the cached one.
	ToLoad []RemoteApp

	// Unchanged holds the cached records whose remote counterpart is
	// unchanged. The cached record is returned rather than the remote
	// item since it carries the previously loaded payload.
	Unchanged []*AppRecord

	// ToRemove holds the app ids of cached records that no longer
	// appear among the remote apps.
	ToRemove []string
}

// Reconcile classifies the remote apps currently reported for a scope
// against the cached records of that scope.
//
// The classification is mechanical and policy-free: an empty remote
// list marks every cached app for removal, and it is up to the caller
// to decide whether that was a real full eviction or a failed fetch.
func (c *Client) Reconcile(ctx context.Context, tenantURL, userID string, remote []RemoteApp) (*ReconcileResult, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	cached, err := c.GetAllCachedApps(ctx, tenantURL, userID)
	if err != nil {
		return nil, fmt.Errorf("loading cached apps: %w", err)
	}

	result := classify(cached, remote)

	c.stats.IncCounter(stats.MetricReconciles, 1)
	c.stats.SetGauge(stats.MetricReconcileCachedApps, int64(len(cached)))
	c.stats.ObserveHistogram(stats.MetricReconcileToLoad, float64(len(result.ToLoad)))
	c.stats.ObserveHistogram(stats.MetricReconcileUnchanged, float64(len(result.Unchanged)))
	c.stats.ObserveHistogram(stats.MetricReconcileToRemove, float64(len(result.ToRemove)))

	c.logger.Debug("reconciled",
		zap.Int("remote", len(remote)),
		zap.Int("cached", len(cached)),
		zap.Int("toLoad", len(result.ToLoad)),
		zap.Int("unchanged", len(result.Unchanged)),
		zap.Int("toRemove", len(result.ToRemove)),
	)
	return result, nil
}

// classify partitions remote apps against cached records. App ids are
// compared byte-exact; ids differing in case or whitespace are
// different apps.
func classify(cached []*AppRecord, remote []RemoteApp) *ReconcileResult {
	byID := make(map[string]*AppRecord, len(cached))
	for _, rec := range cached {
		byID[rec.AppID] = rec
	}

	result := &ReconcileResult{}
	seen := make(map[string]bool, len(remote))
	for _, app := range remote {
		seen[app.ID] = true

		rec, ok := byID[app.ID]
		if !ok {
			result.ToLoad = append(result.ToLoad, app)
			continue
		}
		// An absent remote timestamp never marks the app changed.
		if app.UpdatedAt != "" && app.UpdatedAt != rec.RemoteUpdatedAt {
			result.ToLoad = append(result.ToLoad, app)
			continue
		}
		result.Unchanged = append(result.Unchanged, rec)
	}

	for _, rec := range cached {
		if !seen[rec.AppID] {
			result.ToRemove = append(result.ToRemove, rec.AppID)
		}
	}
	return result
}

// IsCacheValid reports whether the scope's cached state is fresh
// enough to serve without a resync. Absent metadata is always invalid.
// The comparison is strict: an age exactly equal to maxAge is stale.
// A non-positive maxAge means DefaultMaxCacheAge.
func (c *Client) IsCacheValid(meta *ScopeMetadata, maxAge time.Duration) bool {
	if meta == nil {
		return false
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxCacheAge
	}
	return c.clock().Sub(meta.LastSyncAt) < maxAge
}
