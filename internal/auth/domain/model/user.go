package model

import (
	"errors"
	"time"
)

// Roles a dashboard user can hold inside an organization.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

var (
	ErrUserExists      = errors.New("email already registered")
	ErrUserNotFound    = errors.New("user not found")
	ErrTenantExists    = errors.New("organization already exists")
	ErrTenantNotFound  = errors.New("organization not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidRole     = errors.New("role must be admin, manager or staff")
)

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleStaff:
		return true
	}
	return false
}

// User is a member of exactly one organization.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	TenantID     string    `json:"tenantId" bson:"tenantId"`
	Role         string    `json:"role" bson:"role"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	FirstName    string    `json:"firstName,omitempty" bson:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty" bson:"lastName,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Tenant is an organization; its id scopes every dashboard document.
type Tenant struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
