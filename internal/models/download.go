package models

import (
	"time"
)

type DownloadSession struct {
	Token             string    `gorm:"primaryKey;size:64"`
	UserID            int64     `gorm:"not null;index:idx_session_user_content,priority:1"`
	ContentID         int64     `gorm:"not null;index:idx_session_user_content,priority:2"`
	CreatedAt         time.Time `gorm:"not null"`
	ExpiresAt         time.Time `gorm:"not null"`
	VisitedAt         *time.Time
	ContentDelivered  bool `gorm:"not null;default:false"`
	AffiliateStepDone bool `gorm:"not null;default:false"`
}

// Download is the append-only delivery log.
type Download struct {
	ID               uint   `gorm:"primaryKey"`
	UserID           int64  `gorm:"not null;index"`
	ContentID        int64  `gorm:"not null;index"`
	SessionToken     string `gorm:"size:64;not null"`
	AffiliateClicked bool   `gorm:"not null;default:false"`
	CreatedAt        time.Time
}
