package models

import "time"

// DriverStatus represents a driver's availability for new deliveries
type DriverStatus string

const (
	DriverStatusAvailable DriverStatus = "available"
	DriverStatusBusy      DriverStatus = "busy"
	DriverStatusOffline   DriverStatus = "offline"
)

const DriversCollection = "drivers"

// Location is a GPS position
type Location struct {
	Lat float64 `json:"lat" firestore:"lat"`
	Lng float64 `json:"lng" firestore:"lng"`
}

type Vehicle struct {
	Type        string `json:"type" firestore:"type"`
	PlateNumber string `json:"plateNumber" firestore:"plateNumber"`
}

// Driver is the fleet record of a user with role "driver"
type Driver struct {
	ID        string       `json:"id" firestore:"-"`
	UserID    string       `json:"userId" firestore:"userId"` // References users/{uid}
	Name      string       `json:"name" firestore:"name"`
	Email     string       `json:"email,omitempty" firestore:"email,omitempty"`
	Phone     string       `json:"phone" firestore:"phone"`
	Status    DriverStatus `json:"status" firestore:"status"`
	Location  Location     `json:"location" firestore:"location"`
	Vehicle   Vehicle      `json:"vehicle" firestore:"vehicle"`
	CreatedAt time.Time    `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt" firestore:"updatedAt"`
}

func (d Driver) DocID() string        { return d.ID }
func (d *Driver) SetDocID(id string)  { d.ID = id }
func (d *Driver) Stamp(now time.Time) { d.CreatedAt, d.UpdatedAt = now, now }

func (d Driver) Field(name string) string {
	switch name {
	case "id":
		return d.ID
	case "name":
		return d.Name
	case "email":
		return d.Email
	case "phone":
		return d.Phone
	case "status":
		return string(d.Status)
	case "vehicle":
		return d.Vehicle.Type + " " + d.Vehicle.PlateNumber
	case "plateNumber":
		return d.Vehicle.PlateNumber
	case "createdAt":
		return d.CreatedAt.UTC().Format(time.RFC3339)
	}
	return ""
}

// DriverWithProfile joins a driver record with the user profile it references
type DriverWithProfile struct {
	Driver
	User User `json:"user"`
}
