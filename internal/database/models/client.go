package models

import "github.com/google/uuid"

type Client struct {
	Base
	Name    string `gorm:"not null" json:"name"`
	Email   string `gorm:"not null" json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`

	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`

	// Relationships
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	Documents    []Document    `gorm:"foreignKey:ClientID" json:"-"`
	Tasks        []Task        `gorm:"foreignKey:ClientID" json:"-"`
}

func (Client) TableName() string {
	return "clients"
}
