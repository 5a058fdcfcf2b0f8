// Package boltstore implements the partitioned key-value store on a
// single bbolt database file.
//
// Each partition maps to a bucket. The records partition additionally
// maintains a scope index bucket whose keys are scope and primary key
// joined by a NUL byte, so all records of a scope are found with one
// prefix scan. Scope and key values must not contain NUL.
package boltstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/appstash/appstash/internal/codec"
	"github.com/appstash/appstash/internal/codec/noopcodec"
	"github.com/appstash/appstash/internal/store"
)

const (
	// fileMode sets permissions so only the owner can read and write.
	fileMode = 0600

	// schemaVersion is the version the code expects on disk. Bumps must
	// ship additive migrations only.
	schemaVersion = 1
)

var defaultTimeout = 1 * time.Second

var (
	recordsBucket  = []byte("records")
	metadataBucket = []byte("metadata")
	scopeIdxBucket = []byte("records_scope_idx")
	schemaBucket   = []byte("schema")

	versionKey = []byte("version")
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Store is a bbolt-backed partitioned key-value store.
//
// The database handle is opened lazily on first use. Concurrent first
// callers converge on a single open attempt; its outcome, success or
// failure, is memoized for the lifetime of the Store.
type Store struct {
	logger *zap.Logger
	path   string
	codec  codec.Codec

	openOnce sync.Once
	db       *bolt.DB
	openErr  error
}

// envelope is the on-disk record framing: the scope travels with the
// value so the index can be kept consistent on overwrite and delete.
type envelope struct {
	Scope string `json:"scope,omitempty"`
	Value []byte `json:"value,omitempty"`
}

// New creates a store backed by the bbolt file at path. The file and
// its directory are created on first use, not here. A nil codec stores
// values uncompressed.
func New(logger *zap.Logger, path string, c codec.Codec) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = noopcodec.New()
	}
	return &Store{
		logger: logger,
		path:   path,
		codec:  c,
	}
}

// open returns the shared database handle, performing the one-time
// initialization if no caller has triggered it yet.
func (s *Store) open() (*bolt.DB, error) {
	s.openOnce.Do(s.doOpen)
	return s.db, s.openErr
}

func (s *Store) doOpen() {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			s.openErr = fmt.Errorf("%w: creating %s: %v", store.ErrUnavailable, dir, err)
			return
		}
	}

	db, err := bolt.Open(s.path, fileMode, &bolt.Options{Timeout: defaultTimeout})
	if err != nil {
		s.openErr = fmt.Errorf("%w: opening %s: %v", store.ErrUnavailable, s.path, err)
		return
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		s.openErr = err
		return
	}

	s.db = db
	s.logger.Debug("store opened",
		zap.String("path", s.path),
		zap.String("codec", s.codec.Name()),
	)
}

// migrate brings the on-disk schema up to schemaVersion. Migrations are
// additive: existing buckets are never rewritten or dropped.
func migrate(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		sb, err := tx.CreateBucketIfNotExists(schemaBucket)
		if err != nil {
			return &store.StorageError{Op: "migrate", Partition: "schema", Err: err}
		}

		stored := 0
		if raw := sb.Get(versionKey); raw != nil {
			stored, err = strconv.Atoi(string(raw))
			if err != nil {
				return &store.StorageError{Op: "migrate", Partition: "schema",
					Err: fmt.Errorf("bad version %q: %v", raw, err)}
			}
		}
		if stored > schemaVersion {
			return &store.StorageError{Op: "migrate", Partition: "schema",
				Err: fmt.Errorf("on-disk schema v%d is newer than supported v%d", stored, schemaVersion)}
		}

		if stored < 1 {
			for _, name := range [][]byte{recordsBucket, metadataBucket, scopeIdxBucket} {
				if _, err := tx.CreateBucketIfNotExists(name); err != nil {
					return &store.StorageError{Op: "migrate", Partition: "schema", Err: err}
				}
			}
		}

		if stored != schemaVersion {
			if err := sb.Put(versionKey, []byte(strconv.Itoa(schemaVersion))); err != nil {
				return &store.StorageError{Op: "migrate", Partition: "schema", Err: err}
			}
		}
		return nil
	})
}

// Put upserts a record, keeping the scope index in step for the
// records partition.
func (s *Store) Put(ctx context.Context, p store.Partition, rec store.Record) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := bucketName(p)
	if err != nil {
		return err
	}

	encoded, err := s.codec.Encode(rec.Value)
	if err != nil {
		return &store.StorageError{Op: "put", Partition: p, Err: err}
	}
	env, err := json.Marshal(envelope{Scope: rec.Scope, Value: encoded})
	if err != nil {
		return &store.StorageError{Op: "put", Partition: p, Err: err}
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(name)
		key := []byte(rec.Key)

		if p == store.Records {
			idx := tx.Bucket(scopeIdxBucket)
			if old := b.Get(key); old != nil {
				var oldEnv envelope
				if err := json.Unmarshal(old, &oldEnv); err == nil && oldEnv.Scope != rec.Scope {
					if err := idx.Delete(indexKey(oldEnv.Scope, rec.Key)); err != nil {
						return err
					}
				}
			}
			if err := idx.Put(indexKey(rec.Scope, rec.Key), nil); err != nil {
				return err
			}
		}
		return b.Put(key, env)
	})
	if err != nil {
		s.logger.Debug("put failed", zap.String("partition", string(p)), zap.Error(err))
		return &store.StorageError{Op: "put", Partition: p, Err: err}
	}
	return nil
}

// Get returns the record stored under key, or found=false if absent.
func (s *Store) Get(ctx context.Context, p store.Partition, key string) (store.Record, bool, error) {
	db, err := s.open()
	if err != nil {
		return store.Record{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return store.Record{}, false, err
	}
	name, err := bucketName(p)
	if err != nil {
		return store.Record{}, false, err
	}

	var (
		rec   store.Record
		found bool
	)
	err = db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(name).Get([]byte(key))
		if raw == nil {
			return nil
		}
		var err error
		rec, err = s.decodeRecord(key, raw)
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		s.logger.Debug("get failed", zap.String("partition", string(p)), zap.Error(err))
		return store.Record{}, false, &store.StorageError{Op: "get", Partition: p, Err: err}
	}
	return rec, found, nil
}

// GetAllByScope returns all records of the records partition whose
// scope equals the given value.
func (s *Store) GetAllByScope(ctx context.Context, p store.Partition, scope string) ([]store.Record, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p != store.Records {
		return nil, &store.StorageError{Op: "getAllByScope", Partition: p,
			Err: fmt.Errorf("partition has no scope index")}
	}

	var recs []store.Record
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		c := tx.Bucket(scopeIdxBucket).Cursor()
		prefix := indexKey(scope, "")
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			key := string(k[len(prefix):])
			raw := b.Get(k[len(prefix):])
			if raw == nil {
				// Stale index entry; skip rather than fail the scan.
				continue
			}
			rec, err := s.decodeRecord(key, raw)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		s.logger.Debug("scope scan failed", zap.String("scope", scope), zap.Error(err))
		return nil, &store.StorageError{Op: "getAllByScope", Partition: p, Err: err}
	}
	return recs, nil
}

// Delete removes the record stored under key. Absent keys are a no-op
// success.
func (s *Store) Delete(ctx context.Context, p store.Partition, key string) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := bucketName(p)
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(name)
		bkey := []byte(key)
		raw := b.Get(bkey)
		if raw == nil {
			return nil
		}
		if p == store.Records {
			var env envelope
			if err := json.Unmarshal(raw, &env); err == nil {
				if err := tx.Bucket(scopeIdxBucket).Delete(indexKey(env.Scope, key)); err != nil {
					return err
				}
			}
		}
		return b.Delete(bkey)
	})
	if err != nil {
		s.logger.Debug("delete failed", zap.String("partition", string(p)), zap.Error(err))
		return &store.StorageError{Op: "delete", Partition: p, Err: err}
	}
	return nil
}

// Close closes the database handle if it was ever opened.
func (s *Store) Close() error {
	// Settle the open cell so a racing first open cannot resurrect the
	// handle after Close.
	s.openOnce.Do(func() {
		s.openErr = fmt.Errorf("%w: store closed before first use", store.ErrUnavailable)
	})
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) decodeRecord(key string, raw []byte) (store.Record, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return store.Record{}, fmt.Errorf("decoding envelope for %q: %w", key, err)
	}
	value, err := s.codec.Decode(env.Value)
	if err != nil {
		return store.Record{}, fmt.Errorf("decompressing value for %q: %w", key, err)
	}
	return store.Record{Key: key, Scope: env.Scope, Value: value}, nil
}

func bucketName(p store.Partition) ([]byte, error) {
	switch p {
	case store.Records:
		return recordsBucket, nil
	case store.Metadata:
		return metadataBucket, nil
	default:
		return nil, &store.StorageError{Op: "resolve", Partition: p,
			Err: fmt.Errorf("unknown partition")}
	}
}

func indexKey(scope, key string) []byte {
	out := make([]byte, 0, len(scope)+1+len(key))
	out = append(out, scope...)
	out = append(out, 0)
	out = append(out, key...)
	return out
}
