package workspace

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/identity"
	"gasdash-backend/internal/listquery"
	"gasdash-backend/internal/models"
)

type fakeProvider struct {
	*identity.Broadcaster
	uids map[string]string
	seq  atomic.Int64
}

func (f *fakeProvider) SignIn(ctx context.Context, email, password string) (*identity.Identity, error) {
	uid, ok := f.uids[email]
	if !ok {
		return nil, identity.ErrInvalidCredentials
	}
	id := &identity.Identity{UID: uid, Email: email, Token: fmt.Sprintf("t-%s-%d", uid, f.seq.Add(1)), ExpiresAt: time.Now().Add(time.Hour)}
	f.Track(id)
	return id, nil
}

func (f *fakeProvider) Register(ctx context.Context, email, password, displayName string) (*identity.Identity, error) {
	return nil, identity.ErrEmailExists
}

func (f *fakeProvider) SignOut(ctx context.Context, id *identity.Identity) error {
	f.SignedOut(id)
	return nil
}

func (f *fakeProvider) Revoke(ctx context.Context, uid string) error {
	f.RevokeLocal(uid)
	return nil
}

func setup(t *testing.T) (*Registry, *docstore.Memory) {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemory()
	provider := &fakeProvider{Broadcaster: identity.NewBroadcaster(), uids: map[string]string{
		"admin@example.com":  "admin-1",
		"driver@example.com": "driver-1",
	}}

	profiles := map[string]models.User{
		"admin-1":  {Name: "Ama", Email: "admin@example.com", Role: models.RoleAdmin, Status: models.UserStatusActive},
		"driver-1": {Name: "Kojo", Email: "driver@example.com", Role: models.RoleDriver, Status: models.UserStatusActive},
	}
	for uid, u := range profiles {
		u.Stamp(time.Now())
		if err := store.Set(ctx, models.UsersCollection, uid, u); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	for _, name := range []string{"Zed", "adwoa", "Kwesi"} {
		c := models.Customer{Name: name}
		c.Stamp(time.Now())
		if _, err := store.Create(ctx, models.CustomersCollection, c); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	reg := NewRegistry(Deps{Store: store, Provider: provider})
	t.Cleanup(reg.Close)
	return reg, store
}

func TestSignInRefreshesEveryResource(t *testing.T) {
	reg, _ := setup(t)
	w := reg.Create()

	var mu sync.Mutex
	var events []string
	w.SetNotifier(func(msgType string, payload any) {
		mu.Lock()
		events = append(events, msgType)
		mu.Unlock()
	})

	if _, err := w.Session.SignIn(context.Background(), "admin@example.com", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if n := len(w.Users.State().Data); n != 2 {
		t.Fatalf("expected 2 users loaded, got %d", n)
	}
	if n := len(w.Customers.State().Data); n != 3 {
		t.Fatalf("expected 3 customers loaded, got %d", n)
	}
	if w.Analytics.State().Data == nil {
		t.Fatal("expected analytics computed")
	}

	mu.Lock()
	if len(events) != 1 || events[0] != "session_changed" {
		t.Fatalf("expected one session_changed event, got %v", events)
	}
	mu.Unlock()

	if err := w.Session.SignOut(context.Background()); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if n := len(w.Users.State().Data); n != 0 {
		t.Fatalf("expected users cleared after sign-out, got %d", n)
	}
}

func TestDriverWorkspaceIsGated(t *testing.T) {
	reg, _ := setup(t)
	w := reg.Create()
	if _, err := w.Session.SignIn(context.Background(), "driver@example.com", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if st := w.Users.State(); len(st.Data) != 0 || st.Error != "" || st.Loading {
		t.Fatalf("expected gated users state, got %+v", st)
	}
	if st := w.Analytics.State(); st.Data != nil {
		t.Fatalf("expected no analytics for driver, got %+v", st)
	}
}

func TestRenderViewSortsAndPages(t *testing.T) {
	reg, _ := setup(t)
	w := reg.Create()
	if _, err := w.Session.SignIn(context.Background(), "admin@example.com", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	rendered, err := w.RenderView("customers")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	res := rendered.(listquery.Result[models.Customer])
	if len(res.Items) != 3 || res.Items[0].Name != "adwoa" || res.Items[2].Name != "Zed" {
		t.Fatalf("unexpected order %+v", res.Items)
	}

	if _, err := w.RenderView("bins"); err != ErrUnknownView {
		t.Fatalf("expected ErrUnknownView, got %v", err)
	}
}

func TestNotificationReachesRecipientWorkspace(t *testing.T) {
	reg, _ := setup(t)
	ctx := context.Background()

	manager := reg.Create()
	if _, err := manager.Session.SignIn(ctx, "admin@example.com", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	driverWS := reg.Create()
	if _, err := driverWS.Session.SignIn(ctx, "driver@example.com", "pw"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	pushed := make(chan any, 1)
	driverWS.SetNotifier(func(msgType string, payload any) {
		if msgType == "notification" {
			pushed <- payload
		}
	})

	note, err := manager.Notifications.Add(ctx, models.Notification{UserID: "driver-1", Title: "New delivery"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if n := len(manager.Notifications.State().Data); n != 0 {
		t.Fatalf("sender inbox should stay empty, got %d", n)
	}

	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("recipient workspace was not notified")
	}
	data := driverWS.Notifications.State().Data
	if len(data) != 1 || data[0].ID != note.ID {
		t.Fatalf("expected notification in recipient inbox, got %+v", data)
	}
}

func TestRegistryRemove(t *testing.T) {
	reg, _ := setup(t)
	w := reg.Create()
	if _, ok := reg.Get(w.ID); !ok {
		t.Fatal("workspace not registered")
	}
	reg.Remove(w.ID)
	if _, ok := reg.Get(w.ID); ok || reg.Len() != 0 {
		t.Fatal("workspace not removed")
	}
}

func TestSignOutLeavesOtherSessionsOfSameUser(t *testing.T) {
	reg, _ := setup(t)
	ctx := context.Background()

	laptop, phone := reg.Create(), reg.Create()
	for _, w := range []*Workspace{laptop, phone} {
		if _, err := w.Session.SignIn(ctx, "admin@example.com", "pw"); err != nil {
			t.Fatalf("sign in: %v", err)
		}
	}

	if err := phone.Session.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if phone.Principal() != nil {
		t.Fatal("phone session still signed in")
	}
	if p := laptop.Principal(); p == nil || p.ID != "admin-1" {
		t.Fatalf("laptop session lost its principal: %+v", p)
	}

	// Revocation ends every session of the user
	if err := reg.deps.Provider.Revoke(ctx, "admin-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if laptop.Principal() != nil {
		t.Fatal("laptop session survived revocation")
	}
}
