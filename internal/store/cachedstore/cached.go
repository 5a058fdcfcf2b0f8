// Package cachedstore wraps a store with an in-process read cache.
//
// Point lookups are served from an LRU keyed by partition and primary
// key. Writes go through to the underlying store and update or
// invalidate the cached entry, so a reader never observes a value the
// store does not hold. Scope scans always hit the underlying store.
package cachedstore

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/appstash/appstash/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

type cacheKey struct {
	partition store.Partition
	key       string
}

// Store wraps another Store with read caching.
type Store struct {
	underlying store.Store
	cache      *lru.Cache[cacheKey, store.Record]

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats contains cache statistics.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// New creates a cached store wrapping the given store, holding at most
// capacity records in memory.
func New(underlying store.Store, capacity int) (*Store, error) {
	cache, err := lru.New[cacheKey, store.Record](capacity)
	if err != nil {
		return nil, err
	}
	return &Store{
		underlying: underlying,
		cache:      cache,
	}, nil
}

// Put writes through to the underlying store and refreshes the cached
// entry on success.
func (s *Store) Put(ctx context.Context, p store.Partition, rec store.Record) error {
	if err := s.underlying.Put(ctx, p, rec); err != nil {
		return err
	}
	s.cache.Add(cacheKey{p, rec.Key}, rec)
	return nil
}

// Get serves from the cache when possible, falling back to the
// underlying store. Absence is not cached.
func (s *Store) Get(ctx context.Context, p store.Partition, key string) (store.Record, bool, error) {
	if rec, ok := s.cache.Get(cacheKey{p, key}); ok {
		s.hits.Add(1)
		return rec, true, nil
	}
	s.misses.Add(1)

	rec, found, err := s.underlying.Get(ctx, p, key)
	if err != nil || !found {
		return rec, found, err
	}
	s.cache.Add(cacheKey{p, key}, rec)
	return rec, true, nil
}

// GetAllByScope always hits the underlying store; the LRU does not
// index by scope.
func (s *Store) GetAllByScope(ctx context.Context, p store.Partition, scope string) ([]store.Record, error) {
	return s.underlying.GetAllByScope(ctx, p, scope)
}

// Delete removes the record from the underlying store and drops the
// cached entry.
func (s *Store) Delete(ctx context.Context, p store.Partition, key string) error {
	if err := s.underlying.Delete(ctx, p, key); err != nil {
		return err
	}
	s.cache.Remove(cacheKey{p, key})
	return nil
}

// Close closes the underlying store.
func (s *Store) Close() error {
	s.cache.Purge()
	return s.underlying.Close()
}

// Stats returns cache statistics.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
		Size:   s.cache.Len(),
	}
}
