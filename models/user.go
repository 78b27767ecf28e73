package models

import (
	"time"
)

// UserRole is the domain role of a salon user
type UserRole string

const (
	UserRoleClient UserRole = "client"
	UserRoleAdmin  UserRole = "admin"
)

// Valid reports whether r is a known role
func (r UserRole) Valid() bool {
	return r == UserRoleClient || r == UserRoleAdmin
}

// User represents a salon user (client or administrator)
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Auth0ID   *string   `gorm:"uniqueIndex" json:"auth0_id,omitempty"` // Auth0 user ID (from 'sub' claim), nil for users created by staff
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Role      UserRole  `gorm:"type:varchar(10);not null;default:'client'" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
