// Package loggedstore wraps a store with zap debug logging of every
// operation. Intended for development and CLI verbose mode.
package loggedstore

import (
	"context"

	"go.uber.org/zap"

	"github.com/appstash/appstash/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store logs each operation before delegating to the wrapped store.
type Store struct {
	log        *zap.Logger
	underlying store.Store
}

// New creates a logging wrapper around the given store.
func New(log *zap.Logger, underlying store.Store) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{log: log, underlying: underlying}
}

// Put logs and delegates.
func (s *Store) Put(ctx context.Context, p store.Partition, rec store.Record) error {
	s.log.Debug("Put",
		zap.String("partition", string(p)),
		zap.String("key", rec.Key),
		zap.String("scope", rec.Scope),
		zap.Int("value length", len(rec.Value)),
	)
	return s.underlying.Put(ctx, p, rec)
}

// Get logs and delegates.
func (s *Store) Get(ctx context.Context, p store.Partition, key string) (store.Record, bool, error) {
	s.log.Debug("Get",
		zap.String("partition", string(p)),
		zap.String("key", key),
	)
	return s.underlying.Get(ctx, p, key)
}

// GetAllByScope logs the scan and its result size.
func (s *Store) GetAllByScope(ctx context.Context, p store.Partition, scope string) ([]store.Record, error) {
	recs, err := s.underlying.GetAllByScope(ctx, p, scope)
	s.log.Debug("GetAllByScope",
		zap.String("partition", string(p)),
		zap.String("scope", scope),
		zap.Int("records", len(recs)),
	)
	return recs, err
}

// Delete logs and delegates.
func (s *Store) Delete(ctx context.Context, p store.Partition, key string) error {
	s.log.Debug("Delete",
		zap.String("partition", string(p)),
		zap.String("key", key),
	)
	return s.underlying.Delete(ctx, p, key)
}

// Close logs and delegates.
func (s *Store) Close() error {
	s.log.Debug("Close")
	return s.underlying.Close()
}
