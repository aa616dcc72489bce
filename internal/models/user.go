package models

import (
	"strings"
	"time"
)

// Role gates which parts of the dashboard a principal may load
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleDriver   Role = "driver"
	RoleCustomer Role = "customer"
)

// UserStatus represents whether an account may sign in
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

const UsersCollection = "users"

// User is the profile document stored under users/{uid}
type User struct {
	ID        string     `json:"id" firestore:"-"`
	Name      string     `json:"name" firestore:"name"`
	Email     string     `json:"email" firestore:"email"`
	Role      Role       `json:"role" firestore:"role"`
	Status    UserStatus `json:"status" firestore:"status"`
	Phone     string     `json:"phone,omitempty" firestore:"phone,omitempty"`
	Avatar    string     `json:"avatar,omitempty" firestore:"avatar,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty" firestore:"lastLogin,omitempty"`
	FCMTokens []string   `json:"fcmTokens,omitempty" firestore:"fcmTokens,omitempty"` // Push targets for this user's devices
	CreatedAt time.Time  `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" firestore:"updatedAt"`
}

func (u User) DocID() string        { return u.ID }
func (u *User) SetDocID(id string)  { u.ID = id }
func (u *User) Stamp(now time.Time) { u.CreatedAt, u.UpdatedAt = now, now }

func (u User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Field returns the textual value of a list column
func (u User) Field(name string) string {
	switch name {
	case "id":
		return u.ID
	case "name":
		return u.Name
	case "email":
		return u.Email
	case "role":
		return string(u.Role)
	case "status":
		return string(u.Status)
	case "phone":
		return u.Phone
	case "lastLogin":
		if u.LastLogin == nil {
			return ""
		}
		return u.LastLogin.UTC().Format(time.RFC3339)
	case "createdAt":
		return u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return ""
}

// ValidRole reports whether r is one of the known roles
func ValidRole(r string) bool {
	switch Role(strings.ToLower(r)) {
	case RoleAdmin, RoleManager, RoleDriver, RoleCustomer:
		return true
	}
	return false
}
