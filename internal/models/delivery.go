package models

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// DeliveryStatus represents where a delivery is in its lifecycle
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusInProgress DeliveryStatus = "in-progress"
	DeliveryStatusCompleted  DeliveryStatus = "completed" // Terminal
	DeliveryStatusCancelled  DeliveryStatus = "cancelled" // Terminal
)

type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "cash"
	PaymentMethodCard        PaymentMethod = "card"
	PaymentMethodMobileMoney PaymentMethod = "mobile-money"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

const DeliveriesCollection = "deliveries"

// LineItem is one product on a delivery, e.g. a 12kg cylinder refill
type LineItem struct {
	Name     string  `json:"name" firestore:"name"`
	Quantity int     `json:"quantity" firestore:"quantity"`
	Price    float64 `json:"price" firestore:"price"`
}

// Revenue returns quantity × unit price
func (l LineItem) Revenue() float64 {
	return float64(l.Quantity) * l.Price
}

type Delivery struct {
	ID              string         `json:"id" firestore:"-"`
	CustomerID      string         `json:"customerId,omitempty" firestore:"customerId,omitempty"`
	CustomerName    string         `json:"customerName" firestore:"customerName"`
	CustomerPhone   string         `json:"customerPhone" firestore:"customerPhone"`
	DeliveryAddress string         `json:"deliveryAddress" firestore:"deliveryAddress"`
	Products        []LineItem     `json:"products" firestore:"products"`
	TotalAmount     float64        `json:"totalAmount" firestore:"totalAmount"`
	Status          DeliveryStatus `json:"status" firestore:"status"`
	PaymentMethod   PaymentMethod  `json:"paymentMethod" firestore:"paymentMethod"`
	PaymentStatus   PaymentStatus  `json:"paymentStatus,omitempty" firestore:"paymentStatus,omitempty"`
	DriverID        string         `json:"driverId,omitempty" firestore:"driverId,omitempty"`
	DriverName      string         `json:"driverName,omitempty" firestore:"driverName,omitempty"`
	DriverPhone     string         `json:"driverPhone,omitempty" firestore:"driverPhone,omitempty"`
	ScheduledAt     *time.Time     `json:"scheduledAt,omitempty" firestore:"scheduledAt,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty" firestore:"completedAt,omitempty"`
	Rating          *float64       `json:"rating,omitempty" firestore:"rating,omitempty"` // Customer rating 1-5
	CreatedAt       time.Time      `json:"createdAt" firestore:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt" firestore:"updatedAt"`
}

func (d Delivery) DocID() string { return d.ID }

func (d *Delivery) SetDocID(id string) { d.ID = id }

func (d *Delivery) Stamp(now time.Time) { d.CreatedAt, d.UpdatedAt = now, now }

func (d Delivery) Field(name string) string {
	switch name {
	case "id":
		return d.ID
	case "customerName":
		return d.CustomerName
	case "customerPhone":
		return d.CustomerPhone
	case "deliveryAddress":
		return d.DeliveryAddress
	case "status":
		return string(d.Status)
	case "paymentMethod":
		return string(d.PaymentMethod)
	case "paymentStatus":
		return string(d.PaymentStatus)
	case "driverName":
		return d.DriverName
	case "totalAmount":
		// Zero-padded so the lower-cased string order matches numeric order
		return fmt.Sprintf("%015.2f", d.TotalAmount)
	case "createdAt":
		return d.CreatedAt.UTC().Format(time.RFC3339)
	case "products":
		return strconv.Itoa(len(d.Products))
	}
	return ""
}

// StartedAt is the reference point for delivery-time metrics
func (d Delivery) StartedAt() time.Time {
	if d.ScheduledAt != nil {
		return *d.ScheduledAt
	}
	return d.CreatedAt
}

var ErrInvalidTransition = errors.New("invalid delivery status transition")

// deliveryTransitions is the authoritative status machine
var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryStatusPending:    {DeliveryStatusInProgress, DeliveryStatusCancelled},
	DeliveryStatusInProgress: {DeliveryStatusCompleted, DeliveryStatusCancelled},
}

// ValidTransitionsFrom returns all valid next statuses
func ValidTransitionsFrom(status DeliveryStatus) []DeliveryStatus {
	return deliveryTransitions[status]
}

// CanTransition checks whether a delivery may move from one status to another
func CanTransition(from, to DeliveryStatus) error {
	for _, next := range deliveryTransitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
}
