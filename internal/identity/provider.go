// Package identity wraps the identity provider that authenticates dashboard
// principals and pushes session-change events to subscribers.
package identity

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
)

// Identity is an authenticated provider session
type Identity struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Reason string

const (
	ReasonSignedOut Reason = "signed_out"
	ReasonExpired   Reason = "expired"
	ReasonRevoked   Reason = "revoked"
)

// Event is a session change pushed by the provider. A nil Identity means
// a session for UID ended: the one holding Token for signed_out and
// expired, every session of UID for revoked.
type Event struct {
	UID      string
	Token    string
	Identity *Identity
	Reason   Reason
}

// Provider is the external identity collaborator
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	Register(ctx context.Context, email, password, displayName string) (*Identity, error)
	SignOut(ctx context.Context, id *Identity) error
	// Revoke ends every session of uid, on every server instance when relayed
	Revoke(ctx context.Context, uid string) error
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Broadcaster tracks live identities and fans session events out to
// subscribers. Providers embed it.
type Broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
	timers map[string]*tracked // keyed by token
}

type tracked struct {
	uid   string
	timer *time.Timer
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs:   make(map[int]func(Event)),
		timers: make(map[string]*tracked),
	}
}

// Subscribe registers fn for every future event
func (b *Broadcaster) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Broadcaster) emit(ev Event) {
	b.mu.Lock()
	subs := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Track arms the expiry timer for id. When it fires subscribers receive an
// "expired" event for the uid.
func (b *Broadcaster) Track(id *Identity) {
	if id == nil || id.Token == "" || id.ExpiresAt.IsZero() {
		return
	}
	token, uid := id.Token, id.UID

	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, ok := b.timers[token]; ok {
		prev.timer.Stop()
	}
	b.timers[token] = &tracked{
		uid: uid,
		timer: time.AfterFunc(time.Until(id.ExpiresAt), func() {
			b.mu.Lock()
			_, live := b.timers[token]
			delete(b.timers, token)
			b.mu.Unlock()
			if !live {
				return
			}
			log.Printf("⏰ Session expired for %s", uid)
			b.emit(Event{UID: uid, Token: token, Reason: ReasonExpired})
		}),
	}
}

// SignedOut stops tracking id and announces the sign-out
func (b *Broadcaster) SignedOut(id *Identity) {
	if id == nil {
		return
	}
	b.mu.Lock()
	if t, ok := b.timers[id.Token]; ok {
		t.timer.Stop()
		delete(b.timers, id.Token)
	}
	b.mu.Unlock()
	b.emit(Event{UID: id.UID, Token: id.Token, Reason: ReasonSignedOut})
}

// RevokeLocal drops every tracked session of uid on this instance and
// announces the revocation
func (b *Broadcaster) RevokeLocal(uid string) {
	b.mu.Lock()
	for token, t := range b.timers {
		if t.uid == uid {
			t.timer.Stop()
			delete(b.timers, token)
		}
	}
	b.mu.Unlock()
	b.emit(Event{UID: uid, Reason: ReasonRevoked})
}

// Tracked returns how many sessions are live for uid
func (b *Broadcaster) Tracked(uid string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, t := range b.timers {
		if t.uid == uid {
			n++
		}
	}
	return n
}
