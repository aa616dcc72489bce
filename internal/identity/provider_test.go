package identity

import (
	"testing"
	"time"
)

func collect(b *Broadcaster) (<-chan Event, func()) {
	ch := make(chan Event, 8)
	unsubscribe := b.Subscribe(func(ev Event) { ch <- ev })
	return ch, unsubscribe
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestTrackEmitsExpired(t *testing.T) {
	b := NewBroadcaster()
	ch, unsubscribe := collect(b)
	defer unsubscribe()

	b.Track(&Identity{UID: "u1", Token: "t1", ExpiresAt: time.Now().Add(20 * time.Millisecond)})

	ev := waitEvent(t, ch)
	if ev.UID != "u1" || ev.Token != "t1" || ev.Reason != ReasonExpired || ev.Identity != nil {
		t.Fatalf("unexpected event %+v", ev)
	}
	if n := b.Tracked("u1"); n != 0 {
		t.Fatalf("expected expired session to be dropped, %d tracked", n)
	}
}

func TestSignedOutStopsExpiry(t *testing.T) {
	b := NewBroadcaster()
	ch, unsubscribe := collect(b)
	defer unsubscribe()

	id := &Identity{UID: "u1", Token: "t1", ExpiresAt: time.Now().Add(30 * time.Millisecond)}
	b.Track(id)
	b.SignedOut(id)

	ev := waitEvent(t, ch)
	if ev.Reason != ReasonSignedOut || ev.Token != "t1" {
		t.Fatalf("expected signed_out for t1, got %+v", ev)
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event after sign-out: %+v", ev)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestRevokeLocalDropsAllSessions(t *testing.T) {
	b := NewBroadcaster()
	later := time.Now().Add(time.Hour)
	b.Track(&Identity{UID: "u1", Token: "a", ExpiresAt: later})
	b.Track(&Identity{UID: "u1", Token: "b", ExpiresAt: later})
	b.Track(&Identity{UID: "u2", Token: "c", ExpiresAt: later})

	ch, unsubscribe := collect(b)
	defer unsubscribe()
	b.RevokeLocal("u1")

	ev := waitEvent(t, ch)
	if ev.UID != "u1" || ev.Reason != ReasonRevoked {
		t.Fatalf("unexpected event %+v", ev)
	}
	if n := b.Tracked("u1"); n != 0 {
		t.Errorf("expected u1 sessions dropped, %d tracked", n)
	}
	if n := b.Tracked("u2"); n != 1 {
		t.Errorf("expected u2 session kept, %d tracked", n)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroadcaster()
	calls := 0
	unsubscribe := b.Subscribe(func(Event) { calls++ })
	unsubscribe()
	unsubscribe()

	b.RevokeLocal("u1")
	if calls != 0 {
		t.Fatalf("expected no calls after unsubscribe, got %d", calls)
	}
}
