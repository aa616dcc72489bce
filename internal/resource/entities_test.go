package resource

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/models"
)

func TestDriverSeesOnlyAssignedDeliveries(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	managerView := NewDeliveries(store)
	defer managerView.Close()
	if err := managerView.OnSessionChanged(ctx, admin); err != nil {
		t.Fatalf("session: %v", err)
	}
	mine, err := managerView.Create(ctx, models.Delivery{CustomerName: "Yaa", DriverID: driver.ID, TotalAmount: 120})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := managerView.Create(ctx, models.Delivery{CustomerName: "Kwame", DriverID: "someone-else", TotalAmount: 80}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if mine.Status != models.DeliveryStatusPending || mine.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("expected pending defaults, got %s/%s", mine.Status, mine.PaymentStatus)
	}

	driverView := NewDeliveries(store)
	defer driverView.Close()
	if err := driverView.OnSessionChanged(ctx, driver); err != nil {
		t.Fatalf("session: %v", err)
	}
	data := driverView.State().Data
	if len(data) != 1 || data[0].ID != mine.ID {
		t.Fatalf("expected only the assigned delivery, got %+v", data)
	}
}

func TestDeliveryStatusTransitions(t *testing.T) {
	ctx := context.Background()
	deliveries := NewDeliveries(docstore.NewMemory())
	defer deliveries.Close()
	if err := deliveries.OnSessionChanged(ctx, admin); err != nil {
		t.Fatalf("session: %v", err)
	}
	d, err := deliveries.Create(ctx, models.Delivery{CustomerName: "Yaa"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := deliveries.UpdateStatus(ctx, d.ID, models.DeliveryStatusCompleted); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> completed: expected ErrInvalidTransition, got %v", err)
	}
	if err := deliveries.UpdateStatus(ctx, d.ID, models.DeliveryStatusInProgress); err != nil {
		t.Fatalf("pending -> in-progress: %v", err)
	}
	if err := deliveries.UpdateStatus(ctx, d.ID, models.DeliveryStatusCompleted); err != nil {
		t.Fatalf("in-progress -> completed: %v", err)
	}

	got, _ := deliveries.Find(d.ID)
	if got.Status != models.DeliveryStatusCompleted || got.CompletedAt == nil {
		t.Fatalf("expected completed with completedAt, got %+v", got)
	}
	if err := deliveries.AssignDriver(ctx, d.ID, models.Driver{UserID: "u9", Name: "Kojo"}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("assign on completed: expected ErrInvalidTransition, got %v", err)
	}
}

func TestUpdateWithStatusFollowsTransitions(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	deliveries := NewDeliveries(store)
	defer deliveries.Close()
	if err := deliveries.OnSessionChanged(ctx, admin); err != nil {
		t.Fatalf("session: %v", err)
	}
	d, err := deliveries.Create(ctx, models.Delivery{CustomerName: "Yaa"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = deliveries.Update(ctx, d.ID, docstore.Patch{"status": "completed", "customerName": "Ama"})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> completed through Update: expected ErrInvalidTransition, got %v", err)
	}
	snap, err := store.Get(ctx, models.DeliveriesCollection, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var stored models.Delivery
	if err := snap.DataTo(&stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.Status != models.DeliveryStatusPending || stored.CustomerName != "Yaa" {
		t.Fatalf("rejected patch reached the store: %+v", stored)
	}

	// Resending the current status is not a transition
	if err := deliveries.Update(ctx, d.ID, docstore.Patch{"status": "pending", "customerName": "Ama"}); err != nil {
		t.Fatalf("same status: %v", err)
	}
	if err := deliveries.Update(ctx, d.ID, docstore.Patch{"status": "in-progress"}); err != nil {
		t.Fatalf("pending -> in-progress: %v", err)
	}
	if err := deliveries.Update(ctx, d.ID, docstore.Patch{"status": models.DeliveryStatusCompleted}); err != nil {
		t.Fatalf("in-progress -> completed: %v", err)
	}
	got, _ := deliveries.Find(d.ID)
	if got.Status != models.DeliveryStatusCompleted || got.CompletedAt == nil || got.CustomerName != "Ama" {
		t.Fatalf("expected completed with completedAt, got %+v", got)
	}
}

func TestAssignDriverCopiesReference(t *testing.T) {
	ctx := context.Background()
	deliveries := NewDeliveries(docstore.NewMemory())
	defer deliveries.Close()
	if err := deliveries.OnSessionChanged(ctx, admin); err != nil {
		t.Fatalf("session: %v", err)
	}
	d, _ := deliveries.Create(ctx, models.Delivery{CustomerName: "Yaa"})

	drv := models.Driver{ID: "drv-1", UserID: driver.ID, Name: "Kojo", Phone: "0200000000"}
	if err := deliveries.AssignDriver(ctx, d.ID, drv); err != nil {
		t.Fatalf("assign: %v", err)
	}
	got, _ := deliveries.Find(d.ID)
	if got.DriverID != driver.ID || got.DriverName != "Kojo" || got.DriverPhone != "0200000000" {
		t.Fatalf("driver fields not copied: %+v", got)
	}
}

func TestResolveDriverWithProfile(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	if err := store.Set(ctx, models.UsersCollection, driver.ID, driver); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	drivers := NewDrivers(store)
	defer drivers.Close()
	if err := drivers.OnSessionChanged(ctx, admin); err != nil {
		t.Fatalf("session: %v", err)
	}
	created, err := drivers.Create(ctx, models.Driver{UserID: driver.ID, Name: "Kojo", Status: models.DriverStatusAvailable})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	joined, err := drivers.ResolveDriverWithProfile(ctx, created.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if joined.Driver.ID != created.ID || joined.User.ID != driver.ID || joined.User.Role != models.RoleDriver {
		t.Fatalf("unexpected join %+v", joined)
	}
	if len(drivers.Available()) != 1 {
		t.Fatal("expected one available driver")
	}

	if _, err := drivers.ResolveDriverWithProfile(ctx, "missing"); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type stubGeocoder struct{ calls int }

func (g *stubGeocoder) Geocode(ctx context.Context, address string) (*models.Location, error) {
	g.calls++
	return &models.Location{Lat: 5.6037, Lng: -0.1870}, nil
}

func TestCustomersGeocodeAndSearch(t *testing.T) {
	ctx := context.Background()
	geo := &stubGeocoder{}
	customers := NewCustomers(docstore.NewMemory(), geo)
	defer customers.Close()
	if err := customers.OnSessionChanged(ctx, admin); err != nil {
		t.Fatalf("session: %v", err)
	}

	c, err := customers.Create(ctx, models.Customer{Name: "Adwoa Mensah", Email: "adwoa@example.com", Phone: "0244123456", Address: "12 Oxford St, Accra"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Location == nil || geo.calls != 1 {
		t.Fatalf("expected geocoded location, got %+v after %d calls", c.Location, geo.calls)
	}
	if _, err := customers.Create(ctx, models.Customer{Name: "Kwesi", Email: "kwesi@example.com", Phone: "0500999888"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	tests := []struct {
		text string
		want int
	}{
		{"", 2},
		{"ADWOA", 1},
		{"example.com", 2},
		{"0500", 1},
		{"nobody", 0},
	}
	for _, tt := range tests {
		if got := len(customers.Search(tt.text)); got != tt.want {
			t.Errorf("Search(%q) = %d results, want %d", tt.text, got, tt.want)
		}
	}
}

type recordingPusher struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (p *recordingPusher) Push(ctx context.Context, n models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
	return nil
}

func TestNotificationsInbox(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	pusher := &recordingPusher{}

	inbox := NewNotifications(store, pusher)
	defer inbox.Close()
	if err := inbox.OnSessionChanged(ctx, driver); err != nil {
		t.Fatalf("session: %v", err)
	}

	first, err := inbox.Add(ctx, models.Notification{UserID: driver.ID, Title: "Assigned", Message: "New delivery"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := inbox.Add(ctx, models.Notification{UserID: driver.ID, Title: "Updated", Type: models.NotificationWarning})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := inbox.Add(ctx, models.Notification{UserID: "someone-else", Title: "Not mine"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	data := inbox.State().Data
	if len(data) != 2 || data[0].ID != second.ID || data[1].ID != first.ID {
		t.Fatalf("expected newest first and only own notifications, got %+v", data)
	}
	if first.Type != models.NotificationInfo {
		t.Fatalf("expected default type info, got %s", first.Type)
	}
	if len(pusher.sent) != 3 {
		t.Fatalf("expected 3 pushes, got %d", len(pusher.sent))
	}

	if err := inbox.MarkAsRead(ctx, first.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if n := inbox.UnreadCount(); n != 1 {
		t.Fatalf("expected 1 unread, got %d", n)
	}
	if err := inbox.MarkAllAsRead(ctx); err != nil {
		t.Fatalf("mark all: %v", err)
	}
	if n := inbox.UnreadCount(); n != 0 {
		t.Fatalf("expected 0 unread, got %d", n)
	}

	if err := inbox.Fetch(ctx); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	for _, n := range inbox.State().Data {
		if !n.Read {
			t.Fatalf("notification %s not persisted as read", n.ID)
		}
	}
}

func TestMarkAllAsReadFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: docstore.NewMemory()}
	inbox := NewNotifications(store, nil)
	defer inbox.Close()
	if err := inbox.OnSessionChanged(ctx, driver); err != nil {
		t.Fatalf("session: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := inbox.Add(ctx, models.Notification{UserID: driver.ID, Title: "n"}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	store.failWrite = errors.New("quota exceeded")
	if err := inbox.MarkAllAsRead(ctx); err == nil {
		t.Fatal("expected error")
	}
	if n := inbox.UnreadCount(); n != 3 {
		t.Fatalf("expected cache untouched with 3 unread, got %d", n)
	}
	if inbox.State().Error == "" {
		t.Fatal("expected error recorded")
	}
}
