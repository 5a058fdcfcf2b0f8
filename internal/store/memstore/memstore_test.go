package memstore

import (
	"bytes"
	"context"
	"testing"

	"github.com/appstash/appstash/internal/store"
)

func TestStore_PutGetDelete(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	rec := store.Record{Key: "s|a", Scope: "s", Value: []byte("v")}
	if err := s.Put(ctx, store.Records, rec); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, found, err := s.Get(ctx, store.Records, "s|a")
	if err != nil || !found {
		t.Fatalf("Get() = found=%v, err=%v", found, err)
	}
	if !bytes.Equal(got.Value, rec.Value) {
		t.Errorf("value = %q, want %q", got.Value, rec.Value)
	}
	if s.Len(store.Records) != 1 || s.Len(store.Metadata) != 0 {
		t.Errorf("Len = records:%d metadata:%d, want 1 and 0",
			s.Len(store.Records), s.Len(store.Metadata))
	}

	if err := s.Delete(ctx, store.Records, "s|a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, store.Records, "s|a"); err != nil {
		t.Errorf("Delete(absent) error = %v, want nil", err)
	}
	if s.Len(store.Records) != 0 {
		t.Errorf("Len(records) = %d after delete, want 0", s.Len(store.Records))
	}
}

func TestStore_ValueIsCopied(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	value := []byte("original")
	if err := s.Put(ctx, store.Records, store.Record{Key: "k", Value: value}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	copy(value, "mutated!")

	got, _, err := s.Get(ctx, store.Records, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got.Value) != "original" {
		t.Errorf("value = %q, caller mutation leaked into the store", got.Value)
	}
}

func TestStore_GetAllByScope(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	for _, rec := range []store.Record{
		{Key: "a|1", Scope: "a", Value: []byte("1")},
		{Key: "a|2", Scope: "a", Value: []byte("2")},
		{Key: "b|3", Scope: "b", Value: []byte("3")},
	} {
		if err := s.Put(ctx, store.Records, rec); err != nil {
			t.Fatalf("Put(%s) error = %v", rec.Key, err)
		}
	}

	recs, err := s.GetAllByScope(ctx, store.Records, "a")
	if err != nil {
		t.Fatalf("GetAllByScope() error = %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("GetAllByScope(a) = %d records, want 2", len(recs))
	}
}
