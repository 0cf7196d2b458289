package models

import "time"

// MaxFileSize is the per-file upload ceiling (10 MiB).
const MaxFileSize = 10 << 20

// SubmissionFile is the metadata of one uploaded document. The blob itself
// lives in the blob store under BlobKey, which is never exposed to callers.
type SubmissionFile struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	SubmissionID     string    `gorm:"size:36;index;not null" json:"submissionId"`
	Category         Category  `gorm:"size:40;not null" json:"category"`
	DocumentName     string    `gorm:"size:200;not null" json:"documentName"`
	Description      string    `gorm:"type:text" json:"description,omitempty"`
	BlobKey          string    `gorm:"uniqueIndex;size:512;not null" json:"-"`
	BlobURL          string    `gorm:"size:1024;not null" json:"-"`
	OriginalFilename string    `gorm:"size:255" json:"originalFilename"`
	Size             int64     `gorm:"not null" json:"size"`
	MimeType         string    `gorm:"size:120" json:"mimeType"`
	UploadedAt       time.Time `gorm:"not null" json:"uploadedAt"`

	DownloadURL string `gorm:"-" json:"downloadUrl,omitempty"`
}

func (SubmissionFile) TableName() string { return "submission_files" }

// DisplayName is the human-readable name, falling back to the original filename.
func (f *SubmissionFile) DisplayName() string {
	if f.DocumentName != "" {
		return f.DocumentName
	}
	return f.OriginalFilename
}
