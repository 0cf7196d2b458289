package models

import "time"

// Status is the lifecycle state of a sponsor submission.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusReviewed  Status = "reviewed"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusSubmitted, StatusReviewed, StatusApproved, StatusRejected}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Submission is one sponsor's document collection for one respondent's case.
// AccessToken is the only credential the uploading party holds; it is never rotated.
type Submission struct {
	ID                   string     `gorm:"primaryKey;size:36" json:"id"`
	AccessToken          string     `gorm:"uniqueIndex;size:64;not null" json:"accessToken"`
	SponsorName          string     `gorm:"size:200;not null" json:"sponsorName"`
	SponsorEmail         string     `gorm:"size:254;not null" json:"sponsorEmail"`
	SponsorPhone         string     `gorm:"size:40" json:"sponsorPhone,omitempty"`
	RespondentName       string     `gorm:"size:200;not null" json:"respondentName"`
	RespondentCaseNumber string     `gorm:"size:100" json:"respondentCaseNumber,omitempty"`
	Status               Status     `gorm:"size:20;index;not null" json:"status"`
	SubmittedAt          *time.Time `json:"submittedAt,omitempty"`
	ReviewedAt           *time.Time `json:"reviewedAt,omitempty"`
	ReviewedBy           string     `gorm:"size:36" json:"reviewedBy,omitempty"`
	AdminNotes           string     `gorm:"type:text" json:"adminNotes,omitempty"`
	CreatedBy            string     `gorm:"size:36" json:"createdBy,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`

	Files      []SubmissionFile `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"files,omitempty"`
	ShareLinks []ShareLink      `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Submission) TableName() string { return "submissions" }

// StatusChange is one row of a submission's status audit trail.
type StatusChange struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID string    `gorm:"size:36;index;not null" json:"submissionId"`
	FromStatus   Status    `gorm:"size:20" json:"fromStatus"`
	ToStatus     Status    `gorm:"size:20;not null" json:"toStatus"`
	ChangedBy    string    `gorm:"size:36" json:"changedBy,omitempty"`
	Notes        string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (StatusChange) TableName() string { return "submission_status_changes" }
