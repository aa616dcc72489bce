package resource

import (
	"context"
	"errors"
	"fmt"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/models"
)

// Drivers manages the fleet. Admins and managers only.
type Drivers struct {
	*Resource[models.Driver, *models.Driver]
}

func NewDrivers(store docstore.Store) *Drivers {
	return &Drivers{New[models.Driver](store, Options[models.Driver]{
		Collection: models.DriversCollection,
		Scope:      Gate(docstore.Query{}.OrderBy("createdAt", docstore.Desc), models.RoleAdmin, models.RoleManager),
		TouchField: "updatedAt",
	})}
}

func (d *Drivers) UpdateStatus(ctx context.Context, id string, status models.DriverStatus) error {
	return d.Update(ctx, id, docstore.Patch{"status": status})
}

func (d *Drivers) UpdateLocation(ctx context.Context, id string, loc models.Location) error {
	return d.Update(ctx, id, docstore.Patch{"location": loc})
}

// Available returns cached drivers that can take a delivery
func (d *Drivers) Available() []models.Driver {
	var out []models.Driver
	for _, drv := range d.State().Data {
		if drv.Status == models.DriverStatusAvailable {
			out = append(out, drv)
		}
	}
	return out
}

// ResolveDriverWithProfile reads the driver and the user it references.
// It reads the store directly and never touches the cache.
func (d *Drivers) ResolveDriverWithProfile(ctx context.Context, driverID string) (*models.DriverWithProfile, error) {
	if _, _, ok := d.authorized(); !ok {
		return nil, ErrForbidden
	}

	snap, err := d.store.Get(ctx, models.DriversCollection, driverID)
	if err != nil {
		return nil, fmt.Errorf("driver %s: %w", driverID, err)
	}
	var out models.DriverWithProfile
	if err := snap.DataTo(&out.Driver); err != nil {
		return nil, fmt.Errorf("decode driver: %w", err)
	}
	out.Driver.SetDocID(snap.ID())

	userSnap, err := d.store.Get(ctx, models.UsersCollection, out.Driver.UserID)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("profile %s for driver %s: %w", out.Driver.UserID, driverID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if err := userSnap.DataTo(&out.User); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	out.User.SetDocID(userSnap.ID())
	return &out, nil
}
