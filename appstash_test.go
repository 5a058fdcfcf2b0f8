package appstash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/appstash/appstash/internal/store"
	"github.com/appstash/appstash/internal/store/memstore"
)

// countingStore wraps a store and counts operations, for asserting
// that no-ops really touch no storage.
type countingStore struct {
	store.Store
	ops atomic.Int64
}

func (s *countingStore) Put(ctx context.Context, p store.Partition, rec store.Record) error {
	s.ops.Add(1)
	return s.Store.Put(ctx, p, rec)
}

func (s *countingStore) Get(ctx context.Context, p store.Partition, key string) (store.Record, bool, error) {
	s.ops.Add(1)
	return s.Store.Get(ctx, p, key)
}

func (s *countingStore) GetAllByScope(ctx context.Context, p store.Partition, scope string) ([]store.Record, error) {
	s.ops.Add(1)
	return s.Store.GetAllByScope(ctx, p, scope)
}

func (s *countingStore) Delete(ctx context.Context, p store.Partition, key string) error {
	s.ops.Add(1)
	return s.Store.Delete(ctx, p, key)
}

// flakyStore fails every delete with errOut once armed.
type flakyStore struct {
	store.Store
	failDeletes atomic.Bool
	errOut      error
}

func (s *flakyStore) Delete(ctx context.Context, p store.Partition, key string) error {
	if s.failDeletes.Load() {
		return s.errOut
	}
	return s.Store.Delete(ctx, p, key)
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New()
	if !errors.Is(err, ErrNoStore) {
		t.Errorf("New() error = %v, want ErrNoStore", err)
	}
}

func TestClient_SetGetRoundTrip(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	before := time.Now()
	app := RemoteApp{ID: "app-1", Name: "Dashboard", SpaceID: "space-9", UpdatedAt: "2026-02-01T10:00:00Z"}
	payload := json.RawMessage(`{"widgets":[{"kind":"chart","rows":3}]}`)
	if err := client.SetAppData(ctx, testTenant, testUser, app, payload); err != nil {
		t.Fatalf("SetAppData() error = %v", err)
	}

	rec, found, err := client.GetAppData(ctx, testTenant, testUser, "app-1")
	if err != nil {
		t.Fatalf("GetAppData() error = %v", err)
	}
	if !found {
		t.Fatal("GetAppData() found = false, want true")
	}

	if rec.AppID != app.ID || rec.Name != app.Name || rec.SpaceID != app.SpaceID {
		t.Errorf("record = %+v, want fields of %+v", rec, app)
	}
	if rec.RemoteUpdatedAt != app.UpdatedAt {
		t.Errorf("RemoteUpdatedAt = %q, want %q", rec.RemoteUpdatedAt, app.UpdatedAt)
	}
	if !bytes.Equal(rec.Payload, payload) {
		t.Errorf("Payload = %s, want %s", rec.Payload, payload)
	}
	if rec.Scope != ScopeKey(testTenant, testUser) {
		t.Errorf("Scope = %q, want %q", rec.Scope, ScopeKey(testTenant, testUser))
	}
	if rec.CachedAt.Before(before) {
		t.Errorf("CachedAt = %v, want >= %v", rec.CachedAt, before)
	}
}

func TestClient_GetAppData_Absent(t *testing.T) {
	client := newTestClient(t)

	rec, found, err := client.GetAppData(context.Background(), testTenant, testUser, "nope")
	if err != nil {
		t.Fatalf("GetAppData() error = %v, want nil for absence", err)
	}
	if found || rec != nil {
		t.Errorf("GetAppData() = %+v, found=%v; want nil, false", rec, found)
	}
}

func TestClient_SetAppData_Overwrites(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	seedApps(t, client, RemoteApp{ID: "app-1", Name: "Old", UpdatedAt: "t1"})
	if err := client.SetAppData(ctx, testTenant, testUser,
		RemoteApp{ID: "app-1", Name: "New", UpdatedAt: "t2"}, nil); err != nil {
		t.Fatalf("SetAppData() error = %v", err)
	}

	recs, err := client.GetAllCachedApps(ctx, testTenant, testUser)
	if err != nil {
		t.Fatalf("GetAllCachedApps() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d records after overwrite, want 1", len(recs))
	}
	if recs[0].Name != "New" || recs[0].RemoteUpdatedAt != "t2" {
		t.Errorf("record = %+v, want the overwritten version", recs[0])
	}
}

func TestClient_GetAllCachedApps_ScopeIsolation(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	tenants := map[string][]string{
		"https://one.example.com": {"a", "b", "c"},
		"https://two.example.com": {"d"},
	}
	for tenant, ids := range tenants {
		for _, id := range ids {
			if err := client.SetAppData(ctx, tenant, testUser, RemoteApp{ID: id}, nil); err != nil {
				t.Fatalf("SetAppData(%s, %s) error = %v", tenant, id, err)
			}
		}
	}

	for tenant, ids := range tenants {
		recs, err := client.GetAllCachedApps(ctx, tenant, testUser)
		if err != nil {
			t.Fatalf("GetAllCachedApps(%s) error = %v", tenant, err)
		}
		if got := recordIDs(recs); !sortedEqual(got, ids) {
			t.Errorf("GetAllCachedApps(%s) = %v, want %v", tenant, got, ids)
		}
	}

	recs, err := client.GetAllCachedApps(ctx, "https://three.example.com", testUser)
	if err != nil {
		t.Fatalf("GetAllCachedApps() error = %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("empty scope returned %d records", len(recs))
	}
}

func TestClient_RemoveApp_AbsentIsNoop(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.RemoveApp(ctx, testTenant, testUser, "ghost"); err != nil {
		t.Errorf("RemoveApp(absent) error = %v, want nil", err)
	}
	// And again; repeat deletes stay no-op successes.
	if err := client.RemoveApp(ctx, testTenant, testUser, "ghost"); err != nil {
		t.Errorf("second RemoveApp(absent) error = %v, want nil", err)
	}
}

func TestClient_RemoveApps_EmptyTouchesNoStorage(t *testing.T) {
	counting := &countingStore{Store: memstore.New()}
	client, err := New(WithStore(counting))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	if err := client.RemoveApps(context.Background(), testTenant, testUser, nil); err != nil {
		t.Fatalf("RemoveApps(nil) error = %v", err)
	}
	if got := counting.ops.Load(); got != 0 {
		t.Errorf("RemoveApps(nil) issued %d store operations, want 0", got)
	}
}

func TestClient_RemoveApps_DeletesAll(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	seedApps(t, client,
		RemoteApp{ID: "a"}, RemoteApp{ID: "b"}, RemoteApp{ID: "c"},
	)

	if err := client.RemoveApps(ctx, testTenant, testUser, []string{"a", "c"}); err != nil {
		t.Fatalf("RemoveApps() error = %v", err)
	}

	recs, err := client.GetAllCachedApps(ctx, testTenant, testUser)
	if err != nil {
		t.Fatalf("GetAllCachedApps() error = %v", err)
	}
	if got, want := recordIDs(recs), []string{"b"}; !sortedEqual(got, want) {
		t.Errorf("remaining = %v, want %v", got, want)
	}
}

func TestClient_RemoveApps_SurfacesFirstFailure(t *testing.T) {
	errBroken := errors.New("disk on fire")
	flaky := &flakyStore{Store: memstore.New(), errOut: errBroken}
	client, err := New(WithStore(flaky))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	flaky.failDeletes.Store(true)
	err = client.RemoveApps(context.Background(), testTenant, testUser, []string{"a", "b", "c"})
	if !errors.Is(err, errBroken) {
		t.Errorf("RemoveApps() error = %v, want wrapped %v", err, errBroken)
	}
}

func TestClient_ClearCache(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	seedApps(t, client, RemoteApp{ID: "a"}, RemoteApp{ID: "b"})
	if err := client.SetMetadata(ctx, testTenant, testUser, []string{"a", "b"}); err != nil {
		t.Fatalf("SetMetadata() error = %v", err)
	}

	if err := client.ClearCache(ctx, testTenant, testUser); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}

	recs, err := client.GetAllCachedApps(ctx, testTenant, testUser)
	if err != nil {
		t.Fatalf("GetAllCachedApps() error = %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("ClearCache left %d records", len(recs))
	}
	meta, found, err := client.GetMetadata(ctx, testTenant, testUser)
	if err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if found {
		t.Errorf("ClearCache left metadata %+v", meta)
	}
}

func TestClient_ClearCache_EmptyScope(t *testing.T) {
	client := newTestClient(t)
	if err := client.ClearCache(context.Background(), testTenant, testUser); err != nil {
		t.Errorf("ClearCache(empty scope) error = %v, want nil", err)
	}
}

func TestClient_Metadata_OverwriteSemantics(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	client := newTestClient(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if err := client.SetMetadata(ctx, testTenant, testUser, []string{"a", "b"}); err != nil {
		t.Fatalf("SetMetadata() error = %v", err)
	}
	if err := client.SetMetadata(ctx, testTenant, testUser, []string{"c"}); err != nil {
		t.Fatalf("SetMetadata() error = %v", err)
	}

	meta, found, err := client.GetMetadata(ctx, testTenant, testUser)
	if err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if !found {
		t.Fatal("GetMetadata() found = false, want true")
	}
	if got, want := meta.AppIDs, []string{"c"}; !sortedEqual(got, want) {
		t.Errorf("AppIDs = %v, want %v (wholesale overwrite, no merge)", got, want)
	}
	if !meta.LastSyncAt.Equal(now) {
		t.Errorf("LastSyncAt = %v, want %v", meta.LastSyncAt, now)
	}
	if meta.Scope != ScopeKey(testTenant, testUser) {
		t.Errorf("Scope = %q, want %q", meta.Scope, ScopeKey(testTenant, testUser))
	}
}

func TestClient_Metadata_AbsentAndClear(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	meta, found, err := client.GetMetadata(ctx, testTenant, testUser)
	if err != nil {
		t.Fatalf("GetMetadata() error = %v, want nil for absence", err)
	}
	if found || meta != nil {
		t.Errorf("GetMetadata() = %+v, found=%v; want nil, false", meta, found)
	}

	// Clearing absent metadata is a no-op success.
	if err := client.ClearMetadata(ctx, testTenant, testUser); err != nil {
		t.Errorf("ClearMetadata(absent) error = %v, want nil", err)
	}

	if err := client.SetMetadata(ctx, testTenant, testUser, []string{"a"}); err != nil {
		t.Fatalf("SetMetadata() error = %v", err)
	}
	if err := client.ClearMetadata(ctx, testTenant, testUser); err != nil {
		t.Fatalf("ClearMetadata() error = %v", err)
	}
	_, found, err = client.GetMetadata(ctx, testTenant, testUser)
	if err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}
	if found {
		t.Error("metadata still present after ClearMetadata")
	}
}

func TestClient_TenantURLVariantsShareCache(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.SetAppData(ctx, "HTTPS://Acme.example.com/", testUser,
		RemoteApp{ID: "app-1", Name: "Dashboard"}, nil); err != nil {
		t.Fatalf("SetAppData() error = %v", err)
	}

	rec, found, err := client.GetAppData(ctx, "acme.example.com", testUser, "app-1")
	if err != nil {
		t.Fatalf("GetAppData() error = %v", err)
	}
	if !found {
		t.Fatal("equivalent tenant URL did not resolve to the same scope")
	}
	if rec.Name != "Dashboard" {
		t.Errorf("Name = %q, want %q", rec.Name, "Dashboard")
	}
}

func TestClient_Close(t *testing.T) {
	client := newTestClient(t)

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := client.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close() error = %v, want ErrClosed", err)
	}
	if _, _, err := client.GetAppData(context.Background(), testTenant, testUser, "a"); !errors.Is(err, ErrClosed) {
		t.Errorf("GetAppData() after Close error = %v, want ErrClosed", err)
	}
	if err := client.SetAppData(context.Background(), testTenant, testUser, RemoteApp{ID: "a"}, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("SetAppData() after Close error = %v, want ErrClosed", err)
	}
}
