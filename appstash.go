// Package appstash provides a persistent, multi-tenant client-side
// cache for remote app records, plus the reconciliation that decides
// which cached entries are stale, missing, or orphaned against a fresh
// remote listing.
//
// Example usage:
//
//	client, err := appstash.New(
//	    appstash.WithDatabase("/path/to/appstash.db"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, err := client.Reconcile(ctx, tenantURL, userID, remoteApps)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("to load: %d\n", len(result.ToLoad))
package appstash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/appstash/appstash/internal/stats"
	"github.com/appstash/appstash/internal/store"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrClosed indicates the client has been closed.
	ErrClosed = errors.New("appstash: client closed")

	// ErrNoStore indicates no store was provided.
	ErrNoStore = errors.New("appstash: no store provided")

	// ErrUnavailable indicates the environment provides no persistent
	// storage capability.
	ErrUnavailable = store.ErrUnavailable
)

// Client is the cache manager: the public surface the application uses.
// It derives scope keys from tenant and user identity and performs all
// reads and writes against the partitioned store.
//
// A Client is safe for concurrent use by multiple goroutines, but
// provides no cross-call mutual exclusion: concurrent writes to the
// same app id resolve as last write wins.
type Client struct {
	store  store.Store
	stats  stats.Collector
	logger *zap.Logger
	clock  func() time.Time
	closed atomic.Bool
}

// New creates a new Client with the given options.
// A store is required, via WithStore or WithDatabase.
func New(opts ...Option) (*Client, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	cfg.finish()

	c := &Client{
		store:  cfg.store,
		stats:  cfg.stats,
		logger: cfg.logger,
		clock:  cfg.clock,
	}

	if c.store == nil {
		return nil, ErrNoStore
	}

	c.logger.Debug("client initialized")
	return c, nil
}

// SetAppData constructs a cached record for the app, stamps the local
// cache timestamp, and upserts it, overwriting any prior record for
// that app id within the scope.
func (c *Client) SetAppData(ctx context.Context, tenantURL, userID string, app RemoteApp, payload json.RawMessage) error {
	if c.closed.Load() {
		return ErrClosed
	}

	scope := ScopeKey(tenantURL, userID)
	rec := &AppRecord{
		Key:             recordKey(scope, app.ID),
		Scope:           scope,
		AppID:           app.ID,
		Name:            app.Name,
		Payload:         payload,
		RemoteUpdatedAt: app.UpdatedAt,
		CachedAt:        c.clock(),
		SpaceID:         app.SpaceID,
	}

	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record %q: %w", rec.Key, err)
	}

	err = c.store.Put(ctx, store.Records, store.Record{
		Key:   rec.Key,
		Scope: scope,
		Value: value,
	})
	if err != nil {
		c.logger.Debug("set app data failed", zap.String("appId", app.ID), zap.Error(err))
		return fmt.Errorf("storing app %q: %w", app.ID, err)
	}

	c.stats.IncCounter(stats.MetricPuts, 1)
	return nil
}

// GetAppData returns the cached record for the app, or found=false if
// none is cached.
func (c *Client) GetAppData(ctx context.Context, tenantURL, userID, appID string) (*AppRecord, bool, error) {
	if c.closed.Load() {
		return nil, false, ErrClosed
	}

	c.stats.IncCounter(stats.MetricGets, 1)

	scope := ScopeKey(tenantURL, userID)
	raw, found, err := c.store.Get(ctx, store.Records, recordKey(scope, appID))
	if err != nil {
		c.logger.Debug("get app data failed", zap.String("appId", appID), zap.Error(err))
		return nil, false, fmt.Errorf("reading app %q: %w", appID, err)
	}
	if !found {
		c.stats.IncCounter(stats.MetricMisses, 1)
		return nil, false, nil
	}

	rec, err := decodeAppRecord(raw.Value)
	if err != nil {
		return nil, false, err
	}
	c.stats.IncCounter(stats.MetricHits, 1)
	return rec, true, nil
}

// GetAllCachedApps returns every cached record for the scope, in
// unspecified order.
func (c *Client) GetAllCachedApps(ctx context.Context, tenantURL, userID string) ([]*AppRecord, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	c.stats.IncCounter(stats.MetricScopeScans, 1)

	scope := ScopeKey(tenantURL, userID)
	raws, err := c.store.GetAllByScope(ctx, store.Records, scope)
	if err != nil {
		c.logger.Debug("scope scan failed", zap.String("scope", scope), zap.Error(err))
		return nil, fmt.Errorf("reading apps for scope %q: %w", scope, err)
	}

	recs := make([]*AppRecord, 0, len(raws))
	for _, raw := range raws {
		rec, err := decodeAppRecord(raw.Value)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// RemoveApp deletes the cached record for one app. Removing an app
// that is not cached is a no-op success.
func (c *Client) RemoveApp(ctx context.Context, tenantURL, userID, appID string) error {
	if c.closed.Load() {
		return ErrClosed
	}

	scope := ScopeKey(tenantURL, userID)
	if err := c.store.Delete(ctx, store.Records, recordKey(scope, appID)); err != nil {
		c.logger.Debug("remove app failed", zap.String("appId", appID), zap.Error(err))
		return fmt.Errorf("removing app %q: %w", appID, err)
	}
	c.stats.IncCounter(stats.MetricDeletes, 1)
	return nil
}

// RemoveApps deletes the cached records for many apps. An empty id
// list is a no-op that touches no storage.
//
// The constituent deletes are issued concurrently without ordering
// guarantees. Completion is reported once every delete has settled and
// the first observed failure is the one surfaced. Deletes already
// issued are not rolled back: this is best-effort atomicity, not a
// transactional guarantee.
func (c *Client) RemoveApps(ctx context.Context, tenantURL, userID string, appIDs []string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if len(appIDs) == 0 {
		return nil
	}

	scope := ScopeKey(tenantURL, userID)
	var g errgroup.Group
	for _, appID := range appIDs {
		key := recordKey(scope, appID)
		g.Go(func() error {
			return c.store.Delete(ctx, store.Records, key)
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Debug("bulk remove failed", zap.Int("apps", len(appIDs)), zap.Error(err))
		return fmt.Errorf("removing %d apps: %w", len(appIDs), err)
	}

	c.stats.IncCounter(stats.MetricDeletes, int64(len(appIDs)))
	return nil
}

// ClearCache removes every cached record for the scope and then its
// sync metadata.
//
// The sequence is not atomic: a crash partway through can leave records
// without matching metadata. Callers must treat missing metadata as
// "cache needs a full resync", never as corruption.
func (c *Client) ClearCache(ctx context.Context, tenantURL, userID string) error {
	if c.closed.Load() {
		return ErrClosed
	}

	scope := ScopeKey(tenantURL, userID)
	raws, err := c.store.GetAllByScope(ctx, store.Records, scope)
	if err != nil {
		return fmt.Errorf("reading apps for scope %q: %w", scope, err)
	}

	var g errgroup.Group
	for _, raw := range raws {
		key := raw.Key
		g.Go(func() error {
			return c.store.Delete(ctx, store.Records, key)
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Debug("clear cache failed", zap.String("scope", scope), zap.Error(err))
		return fmt.Errorf("clearing scope %q: %w", scope, err)
	}
	c.stats.IncCounter(stats.MetricDeletes, int64(len(raws)))

	if err := c.store.Delete(ctx, store.Metadata, scope); err != nil {
		return fmt.Errorf("clearing metadata for scope %q: %w", scope, err)
	}

	c.logger.Debug("cache cleared", zap.String("scope", scope), zap.Int("records", len(raws)))
	return nil
}

// SetMetadata overwrites the scope's sync metadata with the given app
// id list and the current instant as last sync time.
func (c *Client) SetMetadata(ctx context.Context, tenantURL, userID string, appIDs []string) error {
	if c.closed.Load() {
		return ErrClosed
	}

	scope := ScopeKey(tenantURL, userID)
	meta := &ScopeMetadata{
		Scope:      scope,
		LastSyncAt: c.clock(),
		AppIDs:     appIDs,
	}

	value, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encoding metadata for scope %q: %w", scope, err)
	}

	err = c.store.Put(ctx, store.Metadata, store.Record{Key: scope, Value: value})
	if err != nil {
		c.logger.Debug("set metadata failed", zap.String("scope", scope), zap.Error(err))
		return fmt.Errorf("storing metadata for scope %q: %w", scope, err)
	}
	return nil
}

// GetMetadata returns the scope's sync metadata, or found=false if none
// is stored.
func (c *Client) GetMetadata(ctx context.Context, tenantURL, userID string) (*ScopeMetadata, bool, error) {
	if c.closed.Load() {
		return nil, false, ErrClosed
	}

	scope := ScopeKey(tenantURL, userID)
	raw, found, err := c.store.Get(ctx, store.Metadata, scope)
	if err != nil {
		c.logger.Debug("get metadata failed", zap.String("scope", scope), zap.Error(err))
		return nil, false, fmt.Errorf("reading metadata for scope %q: %w", scope, err)
	}
	if !found {
		return nil, false, nil
	}

	var meta ScopeMetadata
	if err := json.Unmarshal(raw.Value, &meta); err != nil {
		return nil, false, fmt.Errorf("decoding metadata for scope %q: %w", scope, err)
	}
	return &meta, true, nil
}

// ClearMetadata deletes the scope's sync metadata. Absent metadata is
// a no-op success.
func (c *Client) ClearMetadata(ctx context.Context, tenantURL, userID string) error {
	if c.closed.Load() {
		return ErrClosed
	}

	scope := ScopeKey(tenantURL, userID)
	if err := c.store.Delete(ctx, store.Metadata, scope); err != nil {
		c.logger.Debug("clear metadata failed", zap.String("scope", scope), zap.Error(err))
		return fmt.Errorf("clearing metadata for scope %q: %w", scope, err)
	}
	return nil
}

// Close releases all resources associated with the client.
// After Close, the client should not be used.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	if c.store != nil {
		if err := c.store.Close(); err != nil {
			return fmt.Errorf("closing store: %w", err)
		}
	}
	return nil
}

// Store returns the storage backend used by this client.
func (c *Client) Store() store.Store {
	return c.store
}

func decodeAppRecord(value []byte) (*AppRecord, error) {
	var rec AppRecord
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, fmt.Errorf("decoding app record: %w", err)
	}
	return &rec, nil
}
