package resource

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/models"
)

// flakyStore wraps a store, counting calls and failing writes on demand
type flakyStore struct {
	docstore.Store
	calls     atomic.Int32
	failWrite error
	failRead  error
}

func (f *flakyStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	f.calls.Add(1)
	if f.failRead != nil {
		return nil, f.failRead
	}
	return f.Store.Query(ctx, collection, q)
}

func (f *flakyStore) Get(ctx context.Context, collection, id string) (docstore.Snapshot, error) {
	f.calls.Add(1)
	return f.Store.Get(ctx, collection, id)
}

func (f *flakyStore) Create(ctx context.Context, collection string, doc any) (string, error) {
	f.calls.Add(1)
	if f.failWrite != nil {
		return "", f.failWrite
	}
	return f.Store.Create(ctx, collection, doc)
}

func (f *flakyStore) Update(ctx context.Context, collection, id string, patch docstore.Patch) error {
	f.calls.Add(1)
	if f.failWrite != nil {
		return f.failWrite
	}
	return f.Store.Update(ctx, collection, id, patch)
}

func (f *flakyStore) Delete(ctx context.Context, collection, id string) error {
	f.calls.Add(1)
	if f.failWrite != nil {
		return f.failWrite
	}
	return f.Store.Delete(ctx, collection, id)
}

var (
	admin  = &models.User{ID: "admin-1", Name: "Ama", Role: models.RoleAdmin}
	driver = &models.User{ID: "driver-user-1", Name: "Kojo", Role: models.RoleDriver}
)

func newUsers(t *testing.T) (*Users, *flakyStore) {
	t.Helper()
	store := &flakyStore{Store: docstore.NewMemory()}
	users := NewUsers(store)
	t.Cleanup(users.Close)
	if err := users.OnSessionChanged(context.Background(), admin); err != nil {
		t.Fatalf("session change: %v", err)
	}
	return users, store
}

func TestCreateThenFetchKeepsID(t *testing.T) {
	users, _ := newUsers(t)
	ctx := context.Background()

	created, err := users.Create(ctx, models.User{Name: "Esi", Email: "esi@example.com", Role: models.RoleDriver, Status: models.UserStatusActive})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected store-assigned id")
	}
	if created.CreatedAt.IsZero() || !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("expected both timestamps stamped, got %v / %v", created.CreatedAt, created.UpdatedAt)
	}

	if err := users.Fetch(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	found, ok := users.Find(created.ID)
	if !ok {
		t.Fatalf("created id %s missing after fetch", created.ID)
	}
	if found.Email != "esi@example.com" {
		t.Fatalf("unexpected record %+v", found)
	}
}

func TestUpdateChangesOnlyPatchedFields(t *testing.T) {
	users, _ := newUsers(t)
	ctx := context.Background()

	created, err := users.Create(ctx, models.User{Name: "Esi", Email: "esi@example.com", Role: models.RoleDriver, Status: models.UserStatusActive, Phone: "0244000000"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before, _ := users.Find(created.ID)

	time.Sleep(2 * time.Millisecond)
	if err := users.UpdateStatus(ctx, created.ID, models.UserStatusInactive); err != nil {
		t.Fatalf("update: %v", err)
	}
	after, _ := users.Find(created.ID)

	if after.Status != models.UserStatusInactive {
		t.Fatalf("expected status inactive, got %s", after.Status)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Fatalf("expected updatedAt refreshed, got %v -> %v", before.UpdatedAt, after.UpdatedAt)
	}

	// Everything except the patched fields is untouched
	after.Status = before.Status
	after.UpdatedAt = before.UpdatedAt
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("unpatched fields changed:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestDoubleDeleteSurfacesNotFound(t *testing.T) {
	users, _ := newUsers(t)
	ctx := context.Background()

	a, _ := users.Create(ctx, models.User{Name: "A"})
	b, _ := users.Create(ctx, models.User{Name: "B"})

	if err := users.Remove(ctx, a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := users.Find(a.ID); ok {
		t.Fatal("removed record still cached")
	}

	cached := users.State().Data
	err := users.Remove(ctx, a.ID)
	if !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	state := users.State()
	if !reflect.DeepEqual(cached, state.Data) {
		t.Fatal("cache changed after failed delete")
	}
	if state.Error == "" {
		t.Fatal("expected error recorded")
	}
	if _, ok := users.Find(b.ID); !ok {
		t.Fatal("unrelated record evicted")
	}
}

func TestRoleGateSkipsBackend(t *testing.T) {
	store := &flakyStore{Store: docstore.NewMemory()}
	users := NewUsers(store)
	defer users.Close()

	if err := users.OnSessionChanged(context.Background(), driver); err != nil {
		t.Fatalf("session change: %v", err)
	}
	if err := users.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	state := users.State()
	if len(state.Data) != 0 || state.Loading || state.Error != "" {
		t.Fatalf("expected empty idle state, got %+v", state)
	}
	if n := store.calls.Load(); n != 0 {
		t.Fatalf("expected no backend calls, got %d", n)
	}
	if _, err := users.Create(context.Background(), models.User{Name: "x"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if n := store.calls.Load(); n != 0 {
		t.Fatalf("expected no backend calls after create, got %d", n)
	}
}

func TestFailedUpdateLeavesCache(t *testing.T) {
	users, store := newUsers(t)
	ctx := context.Background()

	created, err := users.Create(ctx, models.User{Name: "Esi", Role: models.RoleDriver})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before := users.State().Data

	store.failWrite = errors.New("permission denied")
	if err := users.UpdateRole(ctx, created.ID, models.RoleManager); err == nil {
		t.Fatal("expected update error")
	}

	state := users.State()
	if !reflect.DeepEqual(before, state.Data) {
		t.Fatal("cache changed after failed update")
	}
	if state.Error != "permission denied" {
		t.Fatalf("expected error recorded, got %q", state.Error)
	}
}

func TestFailedFetchKeepsCache(t *testing.T) {
	users, store := newUsers(t)
	ctx := context.Background()
	if _, err := users.Create(ctx, models.User{Name: "Esi"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	before := users.State().Data

	store.failRead = errors.New("unavailable")
	if err := users.Fetch(ctx); err == nil {
		t.Fatal("expected fetch error")
	}
	state := users.State()
	if !reflect.DeepEqual(before, state.Data) || state.Error == "" || state.Loading {
		t.Fatalf("unexpected state after failed fetch: %+v", state)
	}
}

func TestSignOutClearsCache(t *testing.T) {
	users, _ := newUsers(t)
	if _, err := users.Create(context.Background(), models.User{Name: "Esi"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := users.OnSessionChanged(context.Background(), nil); err != nil {
		t.Fatalf("session change: %v", err)
	}
	if n := len(users.State().Data); n != 0 {
		t.Fatalf("expected empty cache, got %d", n)
	}
}

// slowStore blocks queries until released
type slowStore struct {
	docstore.Store
	release chan struct{}
}

func (s *slowStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	<-s.release
	return s.Store.Query(ctx, collection, q)
}

func TestResultAfterCloseIsDropped(t *testing.T) {
	mem := docstore.NewMemory()
	if _, err := mem.Create(context.Background(), models.UsersCollection, models.User{Name: "Esi"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store := &slowStore{Store: mem, release: make(chan struct{})}
	users := NewUsers(store)

	done := make(chan error, 1)
	go func() { done <- users.OnSessionChanged(context.Background(), admin) }()

	time.Sleep(10 * time.Millisecond)
	users.Close()
	close(store.release)

	if err := <-done; err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if n := len(users.State().Data); n != 0 {
		t.Fatalf("expected result dropped after close, got %d records", n)
	}
}
