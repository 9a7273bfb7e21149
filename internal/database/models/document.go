package models

import "github.com/google/uuid"

type DocumentStatus string

const (
	DocumentStatusDraft    DocumentStatus = "DRAFT"
	DocumentStatusShared   DocumentStatus = "SHARED"
	DocumentStatusArchived DocumentStatus = "ARCHIVED"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusShared, DocumentStatusArchived:
		return true
	}
	return false
}

type Document struct {
	Base
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description,omitempty"`

	FileURL  string `gorm:"not null" json:"file_url"`
	FileType string `json:"file_type"`
	FileSize int64  `json:"file_size"`

	// Object key in the file store, used for presigned downloads.
	FileKey string `json:"-"`

	Status DocumentStatus `gorm:"not null;default:'DRAFT'" json:"status"`

	OrganizationID uuid.UUID  `gorm:"type:uuid;index;not null" json:"organization_id"`
	UploadedByID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"uploaded_by_id"`
	ClientID       *uuid.UUID `gorm:"type:uuid;index" json:"client_id,omitempty"`

	// Relationships
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	UploadedBy   *User         `gorm:"foreignKey:UploadedByID" json:"-"`
	Client       *Client       `gorm:"foreignKey:ClientID" json:"-"`
}

func (Document) TableName() string {
	return "documents"
}
