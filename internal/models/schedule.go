package models

import (
	"time"
)

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobDone       JobStatus = "done"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

func (s JobStatus) Terminal() bool {
	return s == JobDone || s == JobFailed || s == JobCancelled
}

type ScheduledJob struct {
	ID            uint      `gorm:"primaryKey"`
	Title         string    `gorm:"size:512;not null"`
	Category      string    `gorm:"size:255"`
	Description   string    `gorm:"type:text"`
	FileURL       string    `gorm:"type:text;not null"`
	AffiliateLink string    `gorm:"type:text"`
	DueAt         time.Time `gorm:"not null;index"`
	Status        JobStatus `gorm:"size:16;not null;default:'pending';index"`
	ErrorMessage  string    `gorm:"type:text"`
	ContentID     *int64
	CreatedBy     int64
	CreatedAt     time.Time
	FinishedAt    *time.Time
}
