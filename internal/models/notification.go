package models

import "time"

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

const NotificationsCollection = "notifications"

// Notification is append-only; only Read is ever flipped
type Notification struct {
	ID        string           `json:"id" firestore:"-"`
	UserID    string           `json:"userId" firestore:"userId"`
	Title     string           `json:"title" firestore:"title"`
	Message   string           `json:"message" firestore:"message"`
	Type      NotificationType `json:"type" firestore:"type"`
	Read      bool             `json:"read" firestore:"read"`
	CreatedAt time.Time        `json:"createdAt" firestore:"createdAt"`
}

func (n Notification) DocID() string { return n.ID }

func (n *Notification) SetDocID(id string) { n.ID = id }

func (n *Notification) Stamp(now time.Time) { n.CreatedAt = now }
