// Package resource holds the per-entity view-models of a dashboard session:
// a cached mirror of one collection plus the operations that round-trip to
// the document store and patch the cache only after the store confirms.
package resource

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/models"
)

var ErrForbidden = errors.New("not permitted for the current role")

// Doc is the pointer side of a stored entity
type Doc[T any] interface {
	*T
	DocID() string
	SetDocID(id string)
	Stamp(now time.Time)
}

// State is what a page renders: the cached list plus status flags
type State[T any] struct {
	Data    []T    `json:"data"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// Scope returns the server-side query for principal, or false when the
// principal may not load the collection at all
type Scope func(principal *models.User) (docstore.Query, bool)

// Gate authorises a fixed set of roles to the whole collection
func Gate(order docstore.Query, roles ...models.Role) Scope {
	return func(p *models.User) (docstore.Query, bool) {
		if p == nil || !p.HasRole(roles...) {
			return docstore.Query{}, false
		}
		return order, true
	}
}

type Options[T any] struct {
	Collection string
	Scope      Scope
	// TouchField is stamped with the current time on every update. Empty
	// for append-only collections.
	TouchField string
	// Prepend inserts created records at the head of the cache
	Prepend bool
	// Owns reports whether a created record belongs in principal's cache
	Owns func(principal *models.User, item T) bool
	Now  func() time.Time
}

// Resource is a cached mirror of one collection
type Resource[T any, P Doc[T]] struct {
	store docstore.Store
	opts  Options[T]

	mu        sync.Mutex
	principal *models.User
	data      []T
	inflight  int
	err       string
	epoch     uint64 // bumped when the principal changes or on Close
	closed    bool
}

func New[T any, P Doc[T]](store docstore.Store, opts Options[T]) *Resource[T, P] {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Scope == nil {
		opts.Scope = func(p *models.User) (docstore.Query, bool) { return docstore.Query{}, p != nil }
	}
	return &Resource[T, P]{store: store, opts: opts}
}

func (r *Resource[T, P]) Collection() string { return r.opts.Collection }

// State returns a copy of the cache and flags
func (r *Resource[T, P]) State() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	data := make([]T, len(r.data))
	copy(data, r.data)
	return State[T]{Data: data, Loading: r.inflight > 0, Error: r.err}
}

// Find returns the cached record with id
func (r *Resource[T, P]) Find(id string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexOf(id); i >= 0 {
		return r.data[i], true
	}
	var zero T
	return zero, false
}

func (r *Resource[T, P]) indexOf(id string) int {
	for i := range r.data {
		if P(&r.data[i]).DocID() == id {
			return i
		}
	}
	return -1
}

// Principal returns the principal the resource is scoped to
func (r *Resource[T, P]) Principal() *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.principal
}

// authorized returns the current scope and epoch, or ok=false when the
// principal may not touch the collection or the resource is closed
func (r *Resource[T, P]) authorized() (q docstore.Query, epoch uint64, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return docstore.Query{}, 0, false
	}
	q, ok = r.opts.Scope(r.principal)
	return q, r.epoch, ok
}

// live reports whether a result started at epoch may still be applied.
// Must hold r.mu.
func (r *Resource[T, P]) live(epoch uint64) bool {
	return !r.closed && r.epoch == epoch
}

func (r *Resource[T, P]) fail(epoch uint64, op string, err error) error {
	log.Printf("❌ %s %s failed: %v", op, r.opts.Collection, err)
	r.mu.Lock()
	if r.live(epoch) {
		r.err = err.Error()
	}
	r.mu.Unlock()
	return err
}

// RecordError stores err in State for a failed operation composed outside
// the resource and returns it
func (r *Resource[T, P]) RecordError(op string, err error) error {
	r.mu.Lock()
	epoch := r.epoch
	r.mu.Unlock()
	return r.fail(epoch, op, err)
}

func (r *Resource[T, P]) load(ctx context.Context, q docstore.Query) ([]T, error) {
	snaps, err := r.store.Query(ctx, r.opts.Collection, q)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(snaps))
	for _, snap := range snaps {
		var item T
		if err := snap.DataTo(&item); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", r.opts.Collection, snap.ID(), err)
		}
		P(&item).SetDocID(snap.ID())
		items = append(items, item)
	}
	return items, nil
}

// Fetch replaces the cache with the principal's view of the collection.
// A failure is recorded in State and leaves the cache as it was.
// Unauthorised principals get an empty state and no store call.
func (r *Resource[T, P]) Fetch(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	q, ok := r.opts.Scope(r.principal)
	if !ok {
		r.data = nil
		r.err = ""
		r.mu.Unlock()
		return nil
	}
	epoch := r.epoch
	r.inflight++
	r.mu.Unlock()

	items, err := r.load(ctx, q)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.live(epoch) {
		return nil
	}
	r.inflight--
	if err != nil {
		log.Printf("❌ Fetch %s failed: %v", r.opts.Collection, err)
		r.err = err.Error()
		return err
	}
	r.data = items
	r.err = ""
	return nil
}

// Create stamps timestamps, persists item and adds the stored record to
// the cache
func (r *Resource[T, P]) Create(ctx context.Context, item T) (T, error) {
	_, epoch, ok := r.authorized()
	if !ok {
		var zero T
		return zero, ErrForbidden
	}

	P(&item).Stamp(r.opts.Now())
	id, err := r.store.Create(ctx, r.opts.Collection, item)
	if err != nil {
		var zero T
		return zero, r.fail(epoch, "Create", err)
	}
	P(&item).SetDocID(id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.live(epoch) {
		return item, nil
	}
	r.err = ""
	if r.opts.Owns != nil && !r.opts.Owns(r.principal, item) {
		return item, nil
	}
	if r.opts.Prepend {
		r.data = append([]T{item}, r.data...)
	} else {
		r.data = append(r.data, item)
	}
	return item, nil
}

// Update persists patch and merges exactly the patched fields into the
// cached record
func (r *Resource[T, P]) Update(ctx context.Context, id string, patch docstore.Patch) error {
	_, epoch, ok := r.authorized()
	if !ok {
		return ErrForbidden
	}

	patch = patch.Clone()
	if r.opts.TouchField != "" {
		patch[r.opts.TouchField] = r.opts.Now()
	}
	if err := r.store.Update(ctx, r.opts.Collection, id, patch); err != nil {
		return r.fail(epoch, "Update", err)
	}
	return r.applyPatch(epoch, id, patch)
}

func (r *Resource[T, P]) applyPatch(epoch uint64, id string, patch docstore.Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.live(epoch) {
		return nil
	}
	r.err = ""
	i := r.indexOf(id)
	if i < 0 {
		return nil
	}
	merged, err := docstore.Merge(r.data[i], patch)
	if err != nil {
		r.err = err.Error()
		return err
	}
	P(&merged).SetDocID(id)
	r.data[i] = merged
	return nil
}

// Remove deletes id remotely, then evicts it. A missing document surfaces
// docstore.ErrNotFound and leaves the cache unchanged.
func (r *Resource[T, P]) Remove(ctx context.Context, id string) error {
	_, epoch, ok := r.authorized()
	if !ok {
		return ErrForbidden
	}
	if err := r.store.Delete(ctx, r.opts.Collection, id); err != nil {
		return r.fail(epoch, "Remove", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.live(epoch) {
		return nil
	}
	r.err = ""
	if i := r.indexOf(id); i >= 0 {
		r.data = append(r.data[:i:i], r.data[i+1:]...)
	}
	return nil
}

// OnSessionChanged rescopes the resource to principal and refetches.
// Results still in flight for the previous principal are discarded.
func (r *Resource[T, P]) OnSessionChanged(ctx context.Context, principal *models.User) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	if !samePrincipal(r.principal, principal) {
		r.data = nil
	}
	if principal != nil {
		cp := *principal
		r.principal = &cp
	} else {
		r.principal = nil
	}
	r.epoch++
	r.inflight = 0
	r.err = ""
	r.mu.Unlock()

	return r.Fetch(ctx)
}

func samePrincipal(a, b *models.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID && a.Role == b.Role
}

// Close stops the resource; results landing afterwards are dropped
func (r *Resource[T, P]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.epoch++
	r.inflight = 0
}
