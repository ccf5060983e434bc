package entity

import (
	"time"
)

type File struct {
	ID        string `gorm:"primaryKey" json:"id"`
	ProjectID string `gorm:"index" json:"projectId"`
	Name      string `json:"name"`
	MimeType  string `json:"type"`
	Size      int64  `json:"size"`

	ProviderFileID      string `gorm:"index" json:"openaiFileId"`
	VectorStoreID       string `json:"vectorStoreId,omitempty"`
	AttachedToAssistant bool   `json:"attachedToAssistant"`

	UploadedAt time.Time `json:"uploadedAt"`
}
