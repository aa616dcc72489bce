// Package session holds the signed-in principal for one dashboard session
// and keeps it consistent with provider-side sign-outs.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/identity"
	"gasdash-backend/internal/models"
)

var (
	ErrProfileMissing = errors.New("user profile not found")
	ErrNotSignedIn    = errors.New("not signed in")
)

type Theme struct {
	DarkMode         bool `json:"darkMode"`
	SidebarCollapsed bool `json:"sidebarCollapsed"`
}

// State is a point-in-time copy of the store
type State struct {
	Principal *models.User `json:"user"`
	Loading   bool         `json:"loading"`
	Error     string       `json:"error,omitempty"`
	Theme     Theme        `json:"theme"`
}

// Profile is the registration payload beyond email and password
type Profile struct {
	Name  string      `json:"name"`
	Phone string      `json:"phone,omitempty"`
	Role  models.Role `json:"role,omitempty"`
}

type Store struct {
	provider identity.Provider
	docs     docstore.Store
	now      func() time.Time

	mu        sync.Mutex
	state     State
	identity  *identity.Identity
	listeners map[int]func(*models.User)
	nextID    int
	stop      func()
}

func New(provider identity.Provider, docs docstore.Store) *Store {
	return &Store{
		provider:  provider,
		docs:      docs,
		now:       time.Now,
		listeners: make(map[int]func(*models.User)),
	}
}

// Start subscribes to provider session events. Calling it twice is a no-op.
func (s *Store) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	s.stop = s.provider.Subscribe(s.handleEvent)
}

// Close unsubscribes from the provider
func (s *Store) Close() {
	s.mu.Lock()
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (s *Store) handleEvent(ev identity.Event) {
	if ev.Identity != nil {
		return
	}
	s.mu.Lock()
	if s.state.Principal == nil || s.state.Principal.ID != ev.UID {
		s.mu.Unlock()
		return
	}
	// Sign-outs and expiries end one session; only revocation ends them all
	if ev.Reason != identity.ReasonRevoked && (s.identity == nil || s.identity.Token != ev.Token) {
		s.mu.Unlock()
		return
	}
	log.Printf("🔒 Session for %s ended by provider (%s)", ev.UID, ev.Reason)
	s.state.Principal = nil
	s.state.Loading = false
	s.identity = nil
	s.mu.Unlock()
	s.notify(nil)
}

// OnChange registers fn to run after every principal change
func (s *Store) OnChange(fn func(*models.User)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(principal *models.User) {
	s.mu.Lock()
	fns := make([]func(*models.User), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		var p *models.User
		if principal != nil {
			cp := *principal
			p = &cp
		}
		fn(p)
	}
}

func (s *Store) begin() {
	s.mu.Lock()
	s.state.Loading = true
	s.mu.Unlock()
}

func (s *Store) succeed(id *identity.Identity, principal *models.User) {
	s.mu.Lock()
	s.state.Principal = principal
	s.state.Loading = false
	s.state.Error = ""
	s.identity = id
	s.mu.Unlock()
	s.notify(principal)
}

func (s *Store) fail(err error) {
	s.mu.Lock()
	hadPrincipal := s.state.Principal != nil
	s.state.Principal = nil
	s.state.Loading = false
	s.state.Error = err.Error()
	s.identity = nil
	s.mu.Unlock()
	if hadPrincipal {
		s.notify(nil)
	}
}

func (s *Store) loadProfile(ctx context.Context, uid string) (*models.User, error) {
	snap, err := s.docs.Get(ctx, models.UsersCollection, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrProfileMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	var u models.User
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	u.SetDocID(snap.ID())
	return &u, nil
}

// SignIn authenticates with the provider and loads users/{uid}
func (s *Store) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	s.begin()
	log.Printf("🔐 Sign-in attempt for: %s", email)

	id, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		s.fail(err)
		return nil, err
	}
	principal, err := s.loadProfile(ctx, id.UID)
	if err != nil {
		_ = s.provider.SignOut(ctx, id)
		s.fail(err)
		return nil, err
	}

	now := s.now()
	if err := s.docs.Update(ctx, models.UsersCollection, id.UID, docstore.Patch{"lastLogin": now}); err != nil {
		log.Printf("⚠️  Failed to stamp last login for %s: %v", id.UID, err)
	} else {
		principal.LastLogin = &now
	}

	log.Printf("✅ Signed in: %s (%s)", principal.Email, principal.Role)
	s.succeed(id, principal)
	return principal, nil
}

// Register creates the account and its profile document. The role defaults
// to customer when the profile leaves it empty.
func (s *Store) Register(ctx context.Context, email, password string, profile Profile) (*models.User, error) {
	s.begin()
	log.Printf("📝 Registration for: %s", email)

	id, err := s.provider.Register(ctx, email, password, profile.Name)
	if err != nil {
		s.fail(err)
		return nil, err
	}

	role := profile.Role
	if role == "" || !models.ValidRole(string(role)) {
		role = models.RoleCustomer
	}
	principal := &models.User{
		Name:   profile.Name,
		Email:  strings.ToLower(email),
		Role:   role,
		Status: models.UserStatusActive,
		Phone:  profile.Phone,
	}
	principal.Stamp(s.now())
	if err := s.docs.Set(ctx, models.UsersCollection, id.UID, principal); err != nil {
		_ = s.provider.SignOut(ctx, id)
		err = fmt.Errorf("create profile: %w", err)
		s.fail(err)
		return nil, err
	}
	principal.SetDocID(id.UID)

	log.Printf("✅ Registered: %s (%s)", principal.Email, principal.Role)
	s.succeed(id, principal)
	return principal, nil
}

// SignOut ends the provider session and clears the principal
func (s *Store) SignOut(ctx context.Context) error {
	s.begin()
	s.mu.Lock()
	id := s.identity
	s.mu.Unlock()

	if id != nil {
		if err := s.provider.SignOut(ctx, id); err != nil {
			s.fail(err)
			return err
		}
	}
	// The provider event may already have cleared the principal
	s.mu.Lock()
	had := s.state.Principal != nil
	s.state.Principal = nil
	s.state.Loading = false
	s.state.Error = ""
	s.identity = nil
	s.mu.Unlock()
	if had {
		s.notify(nil)
	}
	return nil
}

// Refresh reloads the principal's profile, e.g. after an admin changed the
// role. Listeners are notified when the role or status changed.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	current := s.state.Principal
	s.mu.Unlock()
	if current == nil {
		return nil
	}
	fresh, err := s.loadProfile(ctx, current.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.state.Principal == nil || s.state.Principal.ID != fresh.ID {
		s.mu.Unlock()
		return nil
	}
	changed := s.state.Principal.Role != fresh.Role || s.state.Principal.Status != fresh.Status
	s.state.Principal = fresh
	s.mu.Unlock()
	if changed {
		s.notify(fresh)
	}
	return nil
}

// RegisterDevice records an FCM registration token on the principal's
// profile so notifications reach their devices. Known tokens are ignored.
func (s *Store) RegisterDevice(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("device token is required")
	}
	s.mu.Lock()
	if s.state.Principal == nil {
		s.mu.Unlock()
		return ErrNotSignedIn
	}
	uid := s.state.Principal.ID
	s.mu.Unlock()

	profile, err := s.loadProfile(ctx, uid)
	if err != nil {
		return err
	}
	for _, t := range profile.FCMTokens {
		if t == token {
			return nil
		}
	}
	tokens := append(profile.FCMTokens, token)
	if err := s.docs.Update(ctx, models.UsersCollection, uid, docstore.Patch{"fcmTokens": tokens}); err != nil {
		return fmt.Errorf("register device: %w", err)
	}

	s.mu.Lock()
	if s.state.Principal != nil && s.state.Principal.ID == uid {
		s.state.Principal.FCMTokens = tokens
	}
	s.mu.Unlock()
	log.Printf("📱 Registered device for %s (%d total)", uid, len(tokens))
	return nil
}

// Principal returns a copy of the signed-in user, or nil
func (s *Store) Principal() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Principal == nil {
		return nil
	}
	cp := *s.state.Principal
	return &cp
}

// Identity returns the live provider session, or nil
func (s *Store) Identity() *identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	if out.Principal != nil {
		cp := *out.Principal
		out.Principal = &cp
	}
	return out
}

func (s *Store) ToggleDarkMode() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Theme.DarkMode = !s.state.Theme.DarkMode
	return s.state.Theme
}

func (s *Store) SetDarkMode(on bool) Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Theme.DarkMode = on
	return s.state.Theme
}

func (s *Store) ToggleSidebar() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Theme.SidebarCollapsed = !s.state.Theme.SidebarCollapsed
	return s.state.Theme
}

func (s *Store) SetSidebarCollapsed(collapsed bool) Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Theme.SidebarCollapsed = collapsed
	return s.state.Theme
}
