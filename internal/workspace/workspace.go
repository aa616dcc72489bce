// Package workspace composes the view-models of one signed-in browser
// session: its session store, every resource, analytics, reports and the
// list views rendered from them.
package workspace

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"gasdash-backend/internal/analytics"
	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/identity"
	"gasdash-backend/internal/listquery"
	"gasdash-backend/internal/models"
	"gasdash-backend/internal/resource"
	"gasdash-backend/internal/session"

	"golang.org/x/sync/errgroup"
)

var ErrUnknownView = errors.New("unknown list view")

// refreshTimeout bounds the refetch triggered by a principal change
const refreshTimeout = 30 * time.Second

// Deps are the collaborators shared by every workspace
type Deps struct {
	Store    docstore.Store
	Provider identity.Provider
	Geocoder resource.Geocoder
	Pusher   resource.Pusher
}

// Notifier forwards a workspace event to the browser
type Notifier func(msgType string, payload any)

// sessionListener is implemented by every view-model that rescopes on a
// principal change
type sessionListener interface {
	OnSessionChanged(ctx context.Context, principal *models.User) error
	Close()
}

type Workspace struct {
	ID            string
	Session       *session.Store
	Users         *resource.Users
	Drivers       *resource.Drivers
	Customers     *resource.Customers
	Deliveries    *resource.Deliveries
	Notifications *resource.Notifications
	Analytics     *analytics.Analytics
	Reports       *analytics.Reports

	views       map[string]*listquery.View
	listeners   []sessionListener
	unsubscribe func()

	mu     sync.Mutex
	notify Notifier
}

func New(id string, deps Deps) *Workspace {
	w := &Workspace{
		ID:            id,
		Session:       session.New(deps.Provider, deps.Store),
		Users:         resource.NewUsers(deps.Store),
		Drivers:       resource.NewDrivers(deps.Store),
		Customers:     resource.NewCustomers(deps.Store, deps.Geocoder),
		Deliveries:    resource.NewDeliveries(deps.Store),
		Notifications: resource.NewNotifications(deps.Store, deps.Pusher),
		Analytics:     analytics.NewAnalytics(deps.Store),
		Reports:       analytics.NewReports(deps.Store),
		views: map[string]*listquery.View{
			"users":      listquery.NewView([]string{"name", "email", "role"}, "name"),
			"drivers":    listquery.NewView([]string{"name", "email", "phone", "plateNumber"}, "name"),
			"customers":  listquery.NewView([]string{"name", "email", "phone", "address"}, "name"),
			"deliveries": listquery.NewView([]string{"customerName", "driverName", "deliveryAddress"}, "createdAt"),
		},
	}
	w.listeners = []sessionListener{
		w.Users, w.Drivers, w.Customers, w.Deliveries, w.Notifications, w.Analytics, w.Reports,
	}

	w.Session.Start()
	w.unsubscribe = w.Session.OnChange(w.onPrincipalChanged)
	return w
}

// SetNotifier registers where workspace events are pushed
func (w *Workspace) SetNotifier(fn Notifier) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notify = fn
}

func (w *Workspace) emit(msgType string, payload any) {
	w.mu.Lock()
	fn := w.notify
	w.mu.Unlock()
	if fn != nil {
		fn(msgType, payload)
	}
}

func (w *Workspace) onPrincipalChanged(principal *models.User) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := w.Refresh(ctx, principal); err != nil {
		log.Printf("⚠️  Workspace %s refresh incomplete: %v", w.ID, err)
	}
	w.emit("session_changed", w.Session.Snapshot())
}

// Refresh rescopes every view-model to principal concurrently. Each one
// records its own failure; the first error is returned.
func (w *Workspace) Refresh(ctx context.Context, principal *models.User) error {
	var g errgroup.Group
	for _, l := range w.listeners {
		g.Go(func() error {
			return l.OnSessionChanged(ctx, principal)
		})
	}
	return g.Wait()
}

// Principal returns the signed-in user, or nil
func (w *Workspace) Principal() *models.User {
	return w.Session.Principal()
}

// View returns the named list view
func (w *Workspace) View(name string) (*listquery.View, error) {
	v, ok := w.views[name]
	if !ok {
		return nil, ErrUnknownView
	}
	return v, nil
}

// RenderView applies the named view to its resource's current cache
func (w *Workspace) RenderView(name string) (any, error) {
	v, err := w.View(name)
	if err != nil {
		return nil, err
	}
	switch name {
	case "users":
		return listquery.Apply(v, w.Users.State().Data), nil
	case "drivers":
		return listquery.Apply(v, w.Drivers.State().Data), nil
	case "customers":
		return listquery.Apply(v, w.Customers.State().Data), nil
	case "deliveries":
		return listquery.Apply(v, w.Deliveries.State().Data), nil
	}
	return nil, ErrUnknownView
}

// PushView renders the named view and pushes it to the browser
func (w *Workspace) PushView(name string) error {
	rendered, err := w.RenderView(name)
	if err != nil {
		return err
	}
	w.emit("view", map[string]any{"name": name, "result": rendered})
	return nil
}

// Deliver mirrors a notification addressed to this workspace's principal
func (w *Workspace) Deliver(note models.Notification) {
	if w.Notifications.Deliver(note) {
		w.emit("notification", note)
	}
}

// Close detaches from the provider and drops in-flight results
func (w *Workspace) Close() {
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
	w.Session.Close()
	for _, l := range w.listeners {
		l.Close()
	}
}
