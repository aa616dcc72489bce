package workspace

import (
	"context"
	"log"
	"sync"

	"gasdash-backend/internal/models"
	"gasdash-backend/internal/resource"

	"github.com/google/uuid"
)

// Registry maps session ids to live workspaces. It is also the in-app
// notification channel: a notification stored by one session reaches the
// recipient's open workspaces.
type Registry struct {
	deps Deps

	mu         sync.RWMutex
	workspaces map[string]*Workspace
}

func NewRegistry(deps Deps) *Registry {
	r := &Registry{workspaces: make(map[string]*Workspace)}
	deps.Pusher = resource.Pushers{deps.Pusher, r}
	r.deps = deps
	return r
}

// Create opens a workspace under a fresh session id
func (r *Registry) Create() *Workspace {
	w := New(uuid.NewString(), r.deps)
	r.mu.Lock()
	r.workspaces[w.ID] = w
	count := len(r.workspaces)
	r.mu.Unlock()
	log.Printf("🗂️  Workspace opened: %s (%d active)", w.ID, count)
	return w
}

func (r *Registry) Get(id string) (*Workspace, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workspaces[id]
	return w, ok
}

// Remove closes and forgets the workspace
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	w, ok := r.workspaces[id]
	delete(r.workspaces, id)
	r.mu.Unlock()
	if ok {
		w.Close()
		log.Printf("🗂️  Workspace closed: %s", id)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workspaces)
}

// Push delivers n to every open workspace of its recipient
func (r *Registry) Push(ctx context.Context, n models.Notification) error {
	r.mu.RLock()
	targets := make([]*Workspace, 0, 1)
	for _, w := range r.workspaces {
		if p := w.Principal(); p != nil && p.ID == n.UserID {
			targets = append(targets, w)
		}
	}
	r.mu.RUnlock()

	for _, w := range targets {
		w.Deliver(n)
	}
	return nil
}

// Close tears down every workspace
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.workspaces
	r.workspaces = make(map[string]*Workspace)
	r.mu.Unlock()
	for _, w := range all {
		w.Close()
	}
}
