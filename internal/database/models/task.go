package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type Task struct {
	Base
	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description,omitempty"`

	Priority TaskPriority `gorm:"not null;default:'MEDIUM'" json:"priority"`
	Status   TaskStatus   `gorm:"not null;default:'TODO'" json:"status"`
	DueDate  *time.Time   `json:"due_date,omitempty"`

	OrganizationID uuid.UUID  `gorm:"type:uuid;index;not null" json:"organization_id"`
	CreatedByID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"created_by_id"`
	AssignedToID   *uuid.UUID `gorm:"type:uuid;index" json:"assigned_to_id,omitempty"`
	ClientID       *uuid.UUID `gorm:"type:uuid;index" json:"client_id,omitempty"`

	// Relationships
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	CreatedBy    *User         `gorm:"foreignKey:CreatedByID" json:"-"`
	AssignedTo   *User         `gorm:"foreignKey:AssignedToID" json:"-"`
	Client       *Client       `gorm:"foreignKey:ClientID" json:"-"`
}

func (Task) TableName() string {
	return "tasks"
}
