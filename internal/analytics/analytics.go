package analytics

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/models"
)

func canView(p *models.User) bool {
	return p != nil && p.HasRole(models.RoleAdmin, models.RoleManager)
}

// loadDeliveries reads deliveries created within [start, end]
func loadDeliveries(ctx context.Context, store docstore.Store, start, end time.Time) ([]models.Delivery, error) {
	q := docstore.Query{}.
		Where("createdAt", docstore.Gte, start).
		Where("createdAt", docstore.Lte, end).
		OrderBy("createdAt", docstore.Desc)
	snaps, err := store.Query(ctx, models.DeliveriesCollection, q)
	if err != nil {
		return nil, err
	}
	out := make([]models.Delivery, 0, len(snaps))
	for _, snap := range snaps {
		var d models.Delivery
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode delivery %s: %w", snap.ID(), err)
		}
		d.SetDocID(snap.ID())
		out = append(out, d)
	}
	return out, nil
}

type State struct {
	Data    *Summary  `json:"data"`
	Range   Range     `json:"range"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Loading bool      `json:"loading"`
	Error   string    `json:"error,omitempty"`
}

// Analytics computes the dashboard summary for a named range without
// persisting it
type Analytics struct {
	store docstore.Store
	now   func() time.Time
	topN  int

	mu        sync.Mutex
	principal *models.User
	rng       Range
	state     State
	inflight  int
	epoch     uint64
	closed    bool
}

func NewAnalytics(store docstore.Store) *Analytics {
	return &Analytics{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		topN:  DefaultTopProducts,
		rng:   RangeMonth,
	}
}

func (a *Analytics) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.state
	out.Range = a.rng
	out.Loading = a.inflight > 0
	if out.Data != nil {
		cp := *out.Data
		out.Data = &cp
	}
	return out
}

// SetRange switches the window and recomputes
func (a *Analytics) SetRange(ctx context.Context, r Range) error {
	a.mu.Lock()
	a.rng = r
	a.epoch++
	a.inflight = 0
	a.mu.Unlock()
	return a.Refresh(ctx)
}

func (a *Analytics) OnSessionChanged(ctx context.Context, principal *models.User) error {
	a.mu.Lock()
	if principal != nil {
		cp := *principal
		a.principal = &cp
	} else {
		a.principal = nil
	}
	a.state = State{}
	a.epoch++
	a.inflight = 0
	a.mu.Unlock()
	return a.Refresh(ctx)
}

// Refresh recomputes the summary for the current range. Principals outside
// admin and manager get an empty state and no store call.
func (a *Analytics) Refresh(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	if !canView(a.principal) {
		a.state = State{}
		a.mu.Unlock()
		return nil
	}
	epoch := a.epoch
	start, end := a.rng.Window(a.now())
	a.inflight++
	a.mu.Unlock()

	deliveries, err := loadDeliveries(ctx, a.store, start, end)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || a.epoch != epoch {
		return nil
	}
	a.inflight--
	if err != nil {
		log.Printf("❌ Analytics refresh failed: %v", err)
		a.state.Error = err.Error()
		return err
	}
	summary := Summarize(deliveries, a.topN)
	a.state = State{Data: &summary, Start: start, End: end}
	return nil
}

func (a *Analytics) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.epoch++
	a.inflight = 0
}
