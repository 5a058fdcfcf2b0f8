// Package store defines the partitioned key-value contract backing the
// app cache. A store holds exactly two partitions: one for cached app
// records and one for per-scope sync metadata.
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable indicates the environment provides no persistent
// storage capability. It is fatal; the store never retries.
var ErrUnavailable = errors.New("store: persistent storage unavailable")

// Partition names a logical table within the store.
type Partition string

const (
	// Records holds cached app records, keyed by composite key and
	// indexed by scope.
	Records Partition = "records"

	// Metadata holds one sync-metadata record per scope, keyed by scope.
	Metadata Partition = "metadata"
)

// Record is the unit of storage. Value is an opaque serialized blob;
// the store never inspects it. Scope populates the secondary index of
// the records partition and is empty for metadata records.
type Record struct {
	Key   string
	Scope string
	Value []byte
}

// Store is the partitioned key-value adapter contract.
//
// Absence is a normal result: Get reports it through its found flag and
// Delete of an absent key is a no-op success. Errors are reserved for
// storage failures and unavailability.
type Store interface {
	// Put upserts a record by primary key, overwriting any existing
	// record with the same key.
	Put(ctx context.Context, p Partition, rec Record) error

	// Get returns the record stored under key, or found=false if the
	// key is absent.
	Get(ctx context.Context, p Partition, key string) (rec Record, found bool, err error)

	// GetAllByScope returns all records whose scope equals the given
	// value, in unspecified order. Only the records partition carries
	// a scope index.
	GetAllByScope(ctx context.Context, p Partition, scope string) ([]Record, error)

	// Delete removes the record stored under key. Deleting an absent
	// key succeeds.
	Delete(ctx context.Context, p Partition, key string) error

	// Close releases any resources held by the store.
	Close() error
}

// StorageError reports an operation the underlying engine rejected.
// It is propagated to the caller, never swallowed or retried.
type StorageError struct {
	Op        string
	Partition Partition
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Partition, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
