package identity

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type stubProvider struct {
	*Broadcaster
	revoked []string
}

func (s *stubProvider) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	return nil, ErrInvalidCredentials
}

func (s *stubProvider) Register(ctx context.Context, email, password, displayName string) (*Identity, error) {
	return nil, ErrEmailExists
}

func (s *stubProvider) SignOut(ctx context.Context, id *Identity) error {
	s.SignedOut(id)
	return nil
}

func (s *stubProvider) Revoke(ctx context.Context, uid string) error {
	s.revoked = append(s.revoked, uid)
	s.RevokeLocal(uid)
	return nil
}

func startRelay(t *testing.T, ctx context.Context, addr string) (*Relay, *stubProvider) {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { rdb.Close() })

	p := &stubProvider{Broadcaster: NewBroadcaster()}
	relay := NewRelay(p, rdb, "test:revocations")
	ready := make(chan struct{})
	go func() {
		if err := relay.Start(ctx, ready); err != nil {
			t.Errorf("relay start: %v", err)
		}
	}()
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not subscribe")
	}
	return relay, p
}

func TestRelayFansOutRevocation(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nodeA, providerA := startRelay(t, ctx, mr.Addr())
	_, providerB := startRelay(t, ctx, mr.Addr())

	eventsA, unsubA := collect(providerA.Broadcaster)
	defer unsubA()
	eventsB, unsubB := collect(providerB.Broadcaster)
	defer unsubB()

	if err := nodeA.Revoke(ctx, "u42"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if ev := waitEvent(t, eventsA); ev.UID != "u42" || ev.Reason != ReasonRevoked {
		t.Fatalf("node A: unexpected event %+v", ev)
	}
	if ev := waitEvent(t, eventsB); ev.UID != "u42" || ev.Reason != ReasonRevoked {
		t.Fatalf("node B: unexpected event %+v", ev)
	}

	// Node A must not apply its own publication a second time
	select {
	case ev := <-eventsA:
		t.Fatalf("node A received duplicate event %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
	if len(providerA.revoked) != 1 || len(providerB.revoked) != 0 {
		t.Fatalf("expected only node A to revoke remotely, got A=%v B=%v", providerA.revoked, providerB.revoked)
	}
}
