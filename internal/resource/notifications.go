package resource

import (
	"context"
	"log"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/models"

	"golang.org/x/sync/errgroup"
)

// Pusher delivers a notification to the recipient's devices
type Pusher interface {
	Push(ctx context.Context, n models.Notification) error
}

// Notifications is the signed-in principal's inbox, newest first
type Notifications struct {
	*Resource[models.Notification, *models.Notification]
	pusher Pusher
}

func NewNotifications(store docstore.Store, pusher Pusher) *Notifications {
	return &Notifications{
		Resource: New[models.Notification](store, Options[models.Notification]{
			Collection: models.NotificationsCollection,
			Scope: func(p *models.User) (docstore.Query, bool) {
				if p == nil {
					return docstore.Query{}, false
				}
				return docstore.Query{}.
					Where("userId", docstore.Eq, p.ID).
					OrderBy("createdAt", docstore.Desc), true
			},
			Prepend: true,
			Owns: func(p *models.User, n models.Notification) bool {
				return p != nil && n.UserID == p.ID
			},
		}),
		pusher: pusher,
	}
}

// Add stores a notification and pushes it to the recipient's devices.
// It lands in the cache only when addressed to the principal.
func (n *Notifications) Add(ctx context.Context, note models.Notification) (models.Notification, error) {
	if note.Type == "" {
		note.Type = models.NotificationInfo
	}
	note.Read = false
	created, err := n.Create(ctx, note)
	if err != nil {
		return created, err
	}
	if n.pusher != nil {
		if err := n.pusher.Push(ctx, created); err != nil {
			log.Printf("⚠️  Push delivery failed for notification %s: %v", created.ID, err)
		}
	}
	return created, nil
}

func (n *Notifications) MarkAsRead(ctx context.Context, id string) error {
	return n.Update(ctx, id, docstore.Patch{"read": true})
}

// MarkAllAsRead flips every unread cached notification. The cache changes
// only when every store update succeeded.
func (n *Notifications) MarkAllAsRead(ctx context.Context) error {
	_, epoch, ok := n.authorized()
	if !ok {
		return ErrForbidden
	}

	var unread []string
	for _, note := range n.State().Data {
		if !note.Read {
			unread = append(unread, note.ID)
		}
	}
	if len(unread) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range unread {
		g.Go(func() error {
			return n.store.Update(gctx, models.NotificationsCollection, id, docstore.Patch{"read": true})
		})
	}
	if err := g.Wait(); err != nil {
		return n.fail(epoch, "MarkAllAsRead", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.live(epoch) {
		return nil
	}
	n.err = ""
	for _, id := range unread {
		if i := n.indexOf(id); i >= 0 {
			n.data[i].Read = true
		}
	}
	return nil
}

func (n *Notifications) UnreadCount() int {
	count := 0
	for _, note := range n.State().Data {
		if !note.Read {
			count++
		}
	}
	return count
}

// Deliver mirrors a notification stored by another session into this
// inbox. It reports whether the cache changed.
func (n *Notifications) Deliver(note models.Notification) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed || n.principal == nil || note.UserID != n.principal.ID {
		return false
	}
	if n.indexOf(note.ID) >= 0 {
		return false
	}
	n.data = append([]models.Notification{note}, n.data...)
	return true
}

// Pushers fans a notification out to several channels. Every pusher runs;
// the first error is returned.
type Pushers []Pusher

func (ps Pushers) Push(ctx context.Context, note models.Notification) error {
	var first error
	for _, p := range ps {
		if p == nil {
			continue
		}
		if err := p.Push(ctx, note); err != nil && first == nil {
			first = err
		}
	}
	return first
}
