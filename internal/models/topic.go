package models

import "time"

// Topic is a genre thread in the forum group. Prefix starts the codes of
// content whose first genre is this topic.
type Topic struct {
	ID       int64  `gorm:"primaryKey"`
	Name     string `gorm:"size:128;uniqueIndex;not null"`
	Prefix   string `gorm:"size:16;uniqueIndex;not null"`
	ThreadID int
	// IsAll marks the catch-all topic that receives every post.
	IsAll     bool `gorm:"not null;default:false"`
	CreatedAt time.Time
}
