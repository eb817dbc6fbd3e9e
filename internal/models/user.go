package models

import (
	"time"
)

// User is keyed by the Telegram user id. Users are created on first contact
// and never deleted.
type User struct {
	ID                   int64  `gorm:"primaryKey;autoIncrement:false"`
	Username             string `gorm:"size:255"`
	FirstName            string `gorm:"size:255"`
	Language             string `gorm:"size:8"`
	ReferredBy           *int64 `gorm:"index"`
	ReferralCount        int    `gorm:"not null;default:0;index"`
	VerificationComplete bool   `gorm:"not null;default:false"`
	// ReadyToJoin is advisory; admission is always re-derived at consumption time.
	ReadyToJoin    bool   `gorm:"not null;default:false"`
	Approved       bool   `gorm:"not null;default:false"`
	JoinedGroup    bool   `gorm:"not null;default:false"`
	LastInviteLink string `gorm:"size:255"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (u User) DisplayName() string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	default:
		return "-"
	}
}
