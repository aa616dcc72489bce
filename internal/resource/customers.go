package resource

import (
	"context"
	"log"
	"strings"

	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/models"
)

// Geocoder resolves a street address to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*models.Location, error)
}

// Customers manages the customer book. Admins and managers only.
type Customers struct {
	*Resource[models.Customer, *models.Customer]
	geocoder Geocoder
}

func NewCustomers(store docstore.Store, geocoder Geocoder) *Customers {
	return &Customers{
		Resource: New[models.Customer](store, Options[models.Customer]{
			Collection: models.CustomersCollection,
			Scope:      Gate(docstore.Query{}.OrderBy("createdAt", docstore.Desc), models.RoleAdmin, models.RoleManager),
			TouchField: "updatedAt",
		}),
		geocoder: geocoder,
	}
}

// Create geocodes the address when no location was given. Geocoding is
// best effort.
func (c *Customers) Create(ctx context.Context, customer models.Customer) (models.Customer, error) {
	if c.geocoder != nil && customer.Location == nil && customer.Address != "" {
		loc, err := c.geocoder.Geocode(ctx, customer.Address)
		if err != nil {
			log.Printf("⚠️  Geocoding failed for %q: %v", customer.Address, err)
		} else {
			customer.Location = loc
		}
	}
	return c.Resource.Create(ctx, customer)
}

// Search matches name and email case-insensitively, and phone as typed
func (c *Customers) Search(text string) []models.Customer {
	all := c.State().Data
	text = strings.TrimSpace(text)
	if text == "" {
		return all
	}
	needle := strings.ToLower(text)
	var out []models.Customer
	for _, cust := range all {
		if strings.Contains(strings.ToLower(cust.Name), needle) ||
			strings.Contains(strings.ToLower(cust.Email), needle) ||
			strings.Contains(cust.Phone, text) {
			out = append(out, cust)
		}
	}
	return out
}
