// Package memstore provides an in-memory store implementation for testing.
package memstore

import (
	"context"
	"sync"

	"github.com/appstash/appstash/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is an in-memory partitioned store for testing.
type Store struct {
	mu         sync.RWMutex
	partitions map[store.Partition]map[string]store.Record
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		partitions: map[store.Partition]map[string]store.Record{
			store.Records:  {},
			store.Metadata: {},
		},
	}
}

// Put upserts a record by primary key. The value is copied to prevent
// caller mutations from affecting the store.
func (s *Store) Put(ctx context.Context, p store.Partition, rec store.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := rec
	copied.Value = append([]byte(nil), rec.Value...)
	s.partition(p)[rec.Key] = copied
	return nil
}

// Get returns the record stored under key, or found=false if absent.
func (s *Store) Get(ctx context.Context, p store.Partition, key string) (store.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.partition(p)[key]
	return rec, ok, nil
}

// GetAllByScope returns all records in the partition whose scope
// matches, in map iteration order.
func (s *Store) GetAllByScope(ctx context.Context, p store.Partition, scope string) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []store.Record
	for _, rec := range s.partition(p) {
		if rec.Scope == scope {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// Delete removes the record under key. Absent keys are a no-op success.
func (s *Store) Delete(ctx context.Context, p store.Partition, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.partition(p), key)
	return nil
}

// Close is a no-op for the memory store.
func (s *Store) Close() error {
	return nil
}

// Len reports the number of records in a partition (for test assertions).
func (s *Store) Len(p store.Partition) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.partition(p))
}

func (s *Store) partition(p store.Partition) map[string]store.Record {
	m, ok := s.partitions[p]
	if !ok {
		m = map[string]store.Record{}
		s.partitions[p] = m
	}
	return m
}
