package entity

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Project binds a project to its assistant and its active thread.
type Project struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Name        string `json:"name"`
	AssistantID string `json:"assistantId"`
	ThreadID    string `json:"threadId"`
	// PreviousThreadIDs are rotated-away threads, oldest first.
	PreviousThreadIDs datatypes.JSONSlice[string] `json:"previousThreadIds"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Files []File `gorm:"foreignKey:ProjectID" json:"files,omitempty"`
}
