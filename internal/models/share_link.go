package models

import (
	"time"

	"gorm.io/gorm"
)

// ShareState is derived from a link's stored fields; it is never persisted.
type ShareState string

const (
	ShareActive    ShareState = "active"
	ShareExpired   ShareState = "expired"
	ShareRevoked   ShareState = "revoked"
	ShareExhausted ShareState = "exhausted"
)

// ShareLink grants read-only, time- and view-limited access to one submission.
type ShareLink struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	SubmissionID   string     `gorm:"size:36;index;not null" json:"submissionId"`
	ShareToken     string     `gorm:"uniqueIndex;size:64;not null" json:"shareToken"`
	ExpiresAt      time.Time  `gorm:"not null" json:"expiresAt"`
	IsActive       bool       `gorm:"not null;default:true" json:"isActive"`
	ViewCount      int        `gorm:"not null;default:0" json:"viewCount"`
	MaxViews       int        `gorm:"not null;default:0" json:"maxViews"`
	PasswordHash   string     `gorm:"size:100" json:"-"`
	RecipientName  string     `gorm:"size:200" json:"recipientName,omitempty"`
	RecipientEmail string     `gorm:"size:254" json:"recipientEmail,omitempty"`
	CreatedBy      string     `gorm:"size:36" json:"createdBy,omitempty"`
	RevokedAt      *time.Time `json:"revokedAt,omitempty"`
	LastAccessedAt *time.Time `json:"lastAccessedAt,omitempty"`
	LastAccessedIP string     `gorm:"size:64" json:"lastAccessedIp,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`

	PasswordProtected bool       `gorm:"-" json:"passwordProtected"`
	State             ShareState `gorm:"-" json:"state,omitempty"`
}

func (ShareLink) TableName() string { return "share_links" }

func (l *ShareLink) AfterFind(tx *gorm.DB) error {
	l.PasswordProtected = l.PasswordHash != ""
	return nil
}

// StateAt reports the link state at now. Revocation wins over expiry, expiry over exhaustion.
func (l *ShareLink) StateAt(now time.Time) ShareState {
	switch {
	case !l.IsActive:
		return ShareRevoked
	case !now.Before(l.ExpiresAt):
		return ShareExpired
	case l.MaxViews > 0 && l.ViewCount >= l.MaxViews:
		return ShareExhausted
	default:
		return ShareActive
	}
}
