package models

import (
	"time"
)

type Referral struct {
	ID         uint  `gorm:"primaryKey"`
	ReferrerID int64 `gorm:"not null;uniqueIndex:idx_referral_pair,priority:1"`
	ReferredID int64 `gorm:"not null;uniqueIndex:idx_referral_pair,priority:2"`
	CreatedAt  time.Time
}
