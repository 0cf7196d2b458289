package models

import "time"

// ArchiveExport tracks a short-lived archive in the blob store until it is swept.
type ArchiveExport struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	SubmissionID string    `gorm:"size:36;index;not null" json:"submissionId"`
	BlobKey      string    `gorm:"size:512;not null" json:"-"`
	FileCount    int       `json:"fileCount"`
	TotalSize    int64     `json:"totalSize"`
	CreatedBy    string    `gorm:"size:36" json:"createdBy,omitempty"`
	ExpiresAt    time.Time `gorm:"index;not null" json:"expiresAt"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (ArchiveExport) TableName() string { return "archive_exports" }
