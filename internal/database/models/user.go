package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleStaff   Role = "STAFF"
	RoleClient  Role = "CLIENT"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStaff, RoleClient:
		return true
	}
	return false
}

type User struct {
	Base
	Name  string `gorm:"not null" json:"name"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`

	// Empty for OAuth-only accounts, which cannot log in with a password.
	PasswordHash string `json:"-"`

	Role           Role      `gorm:"not null;default:'STAFF'" json:"role"`
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`

	// Set exactly once when the user redeems a verification token.
	EmailVerifiedAt *time.Time `json:"email_verified_at"`

	// Relationships
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}
