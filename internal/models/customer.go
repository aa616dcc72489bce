package models

import "time"

const CustomersCollection = "customers"

type Customer struct {
	ID        string    `json:"id" firestore:"-"`
	Name      string    `json:"name" firestore:"name"`
	Email     string    `json:"email" firestore:"email"`
	Phone     string    `json:"phone" firestore:"phone"`
	Address   string    `json:"address" firestore:"address"`
	Location  *Location `json:"location,omitempty" firestore:"location,omitempty"` // Geocoded from Address when available
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

func (c Customer) DocID() string        { return c.ID }
func (c *Customer) SetDocID(id string)  { c.ID = id }
func (c *Customer) Stamp(now time.Time) { c.CreatedAt, c.UpdatedAt = now, now }

func (c Customer) Field(name string) string {
	switch name {
	case "id":
		return c.ID
	case "name":
		return c.Name
	case "email":
		return c.Email
	case "phone":
		return c.Phone
	case "address":
		return c.Address
	case "createdAt":
		return c.CreatedAt.UTC().Format(time.RFC3339)
	}
	return ""
}
