package resource

import (
	"context"
	"fmt"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/models"
)

var ErrInvalidTransition = models.ErrInvalidTransition

// deliveryScope lets admins and managers see every delivery. Drivers see
// deliveries assigned to them, customers their own orders.
func deliveryScope(p *models.User) (docstore.Query, bool) {
	if p == nil {
		return docstore.Query{}, false
	}
	q := docstore.Query{}
	switch p.Role {
	case models.RoleAdmin, models.RoleManager:
	case models.RoleDriver:
		q = q.Where("driverId", docstore.Eq, p.ID)
	case models.RoleCustomer:
		q = q.Where("customerId", docstore.Eq, p.ID)
	default:
		return docstore.Query{}, false
	}
	return q.OrderBy("createdAt", docstore.Desc), true
}

func ownsDelivery(p *models.User, d models.Delivery) bool {
	switch p.Role {
	case models.RoleDriver:
		return d.DriverID == p.ID
	case models.RoleCustomer:
		return d.CustomerID == p.ID
	}
	return true
}

type Deliveries struct {
	*Resource[models.Delivery, *models.Delivery]
}

func NewDeliveries(store docstore.Store) *Deliveries {
	return &Deliveries{New[models.Delivery](store, Options[models.Delivery]{
		Collection: models.DeliveriesCollection,
		Scope:      deliveryScope,
		TouchField: "updatedAt",
		Owns:       ownsDelivery,
	})}
}

// Create defaults status and payment status to pending
func (d *Deliveries) Create(ctx context.Context, delivery models.Delivery) (models.Delivery, error) {
	if delivery.Status == "" {
		delivery.Status = models.DeliveryStatusPending
	}
	if delivery.PaymentStatus == "" {
		delivery.PaymentStatus = models.PaymentStatusPending
	}
	return d.Resource.Create(ctx, delivery)
}

// current returns the delivery from the cache, falling back to the store
func (d *Deliveries) current(ctx context.Context, id string) (models.Delivery, error) {
	if cached, ok := d.Find(id); ok {
		return cached, nil
	}
	snap, err := d.store.Get(ctx, models.DeliveriesCollection, id)
	if err != nil {
		return models.Delivery{}, err
	}
	var out models.Delivery
	if err := snap.DataTo(&out); err != nil {
		return models.Delivery{}, fmt.Errorf("decode delivery: %w", err)
	}
	out.SetDocID(snap.ID())
	return out, nil
}

// UpdateStatus moves the delivery along the status machine. Completing a
// delivery stamps completedAt.
func (d *Deliveries) UpdateStatus(ctx context.Context, id string, status models.DeliveryStatus) error {
	return d.Update(ctx, id, docstore.Patch{"status": status})
}

// Update persists patch. A status in the patch must follow the status
// machine; resending the current status is allowed and ignored.
func (d *Deliveries) Update(ctx context.Context, id string, patch docstore.Patch) error {
	raw, ok := patch["status"]
	if !ok {
		return d.Resource.Update(ctx, id, patch)
	}
	_, epoch, authorized := d.authorized()
	if !authorized {
		return ErrForbidden
	}

	var status models.DeliveryStatus
	switch v := raw.(type) {
	case models.DeliveryStatus:
		status = v
	case string:
		status = models.DeliveryStatus(v)
	default:
		return d.fail(epoch, "Update", fmt.Errorf("%w: status must be a string", docstore.ErrInvalidField))
	}

	cur, err := d.current(ctx, id)
	if err != nil {
		return d.fail(epoch, "Update", err)
	}
	patch = patch.Clone()
	if status == cur.Status {
		delete(patch, "status")
		if len(patch) == 0 {
			return nil
		}
		return d.Resource.Update(ctx, id, patch)
	}
	if err := models.CanTransition(cur.Status, status); err != nil {
		return d.fail(epoch, "Update", err)
	}
	patch["status"] = status
	if status == models.DeliveryStatusCompleted {
		patch["completedAt"] = d.opts.Now()
	}
	return d.Resource.Update(ctx, id, patch)
}

func (d *Deliveries) UpdatePaymentStatus(ctx context.Context, id string, status models.PaymentStatus) error {
	return d.Update(ctx, id, docstore.Patch{"paymentStatus": status})
}

// AssignDriver copies the driver's reference fields onto an open delivery.
// driverId holds the driver's user id so the driver's own session can
// filter on it.
func (d *Deliveries) AssignDriver(ctx context.Context, id string, driver models.Driver) error {
	_, epoch, ok := d.authorized()
	if !ok {
		return ErrForbidden
	}
	cur, err := d.current(ctx, id)
	if err != nil {
		return d.fail(epoch, "AssignDriver", err)
	}
	if len(models.ValidTransitionsFrom(cur.Status)) == 0 {
		return d.fail(epoch, "AssignDriver", fmt.Errorf("%w: delivery is %s", ErrInvalidTransition, cur.Status))
	}
	return d.Update(ctx, id, docstore.Patch{
		"driverId":    driver.UserID,
		"driverName":  driver.Name,
		"driverPhone": driver.Phone,
	})
}
