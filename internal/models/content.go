package models

import (
	"strings"
	"time"
)

type Content struct {
	ID            int64  `gorm:"primaryKey"`
	Code          string `gorm:"size:32;uniqueIndex;not null"`
	Title         string `gorm:"size:512;not null"`
	Category      string `gorm:"size:255"`
	Description   string `gorm:"type:text"`
	FileURL       string `gorm:"type:text;not null"`
	AffiliateLink string `gorm:"type:text"`
	ShortenedURL  string `gorm:"type:text"`
	// ThumbnailFileID caches the uploaded preview so later sends reuse it.
	ThumbnailFileID string `gorm:"size:255"`
	MessageID       int
	// ThreadID is the forum topic MessageID was posted in, zero for the group itself.
	ThreadID  int
	Views     int `gorm:"not null;default:0"`
	Downloads int `gorm:"not null;default:0"`
	CreatedAt time.Time
}

// IsTelegramFile reports whether FileURL holds a Telegram file id rather than a link.
func (c Content) IsTelegramFile() bool {
	return !strings.HasPrefix(c.FileURL, "http://") && !strings.HasPrefix(c.FileURL, "https://")
}
