package store

import (
	"context"
	"fmt"
	"time"

	"zonarated-bot/internal/models"
)

func (s *Store) CreateJob(ctx context.Context, job *models.ScheduledJob) error {
	if job.Status == "" {
		job.Status = models.JobPending
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("create scheduled job: %w", err)
	}
	return nil
}

// DueJobs returns at most limit pending jobs whose due time has passed, oldest first.
func (s *Store) DueJobs(ctx context.Context, now time.Time, limit int) ([]models.ScheduledJob, error) {
	var jobs []models.ScheduledJob
	err := s.db.WithContext(ctx).
		Where("status = ? AND due_at <= ?", models.JobPending, now).
		Order("due_at asc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("query due jobs: %w", err)
	}
	return jobs, nil
}

// ClaimJob moves a job from pending to in_progress. Only one caller wins.
func (s *Store) ClaimJob(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.ScheduledJob{}).
		Where("id = ? AND status = ?", id, models.JobPending).
		Update("status", models.JobInProgress)
	if res.Error != nil {
		return false, fmt.Errorf("claim job %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) FinishJob(ctx context.Context, id uint, status models.JobStatus, errMsg string, contentID *int64, at time.Time) error {
	values := map[string]any{
		"status":        status,
		"error_message": errMsg,
		"finished_at":   at,
	}
	if contentID != nil {
		values["content_id"] = *contentID
	}
	err := s.db.WithContext(ctx).Model(&models.ScheduledJob{}).
		Where("id = ? AND status = ?", id, models.JobInProgress).
		Updates(values).Error
	if err != nil {
		return fmt.Errorf("finish job %d: %w", id, err)
	}
	return nil
}

// CancelJob cancels a job that has not been claimed yet.
func (s *Store) CancelJob(ctx context.Context, id uint) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.ScheduledJob{}).
		Where("id = ? AND status = ?", id, models.JobPending).
		Update("status", models.JobCancelled)
	if res.Error != nil {
		return false, fmt.Errorf("cancel job %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) GetJob(ctx context.Context, id uint) (*models.ScheduledJob, error) {
	var job models.ScheduledJob
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "scheduled job", fmt.Sprint(id))
	}
	return &job, nil
}

// UpcomingJobs lists the queue for operators: pending first, then in-flight
// and terminal jobs.
func (s *Store) UpcomingJobs(ctx context.Context, limit int) ([]models.ScheduledJob, error) {
	var jobs []models.ScheduledJob
	err := s.db.WithContext(ctx).
		Order(`CASE status
			WHEN 'pending' THEN 0
			WHEN 'in_progress' THEN 1
			WHEN 'done' THEN 2
			WHEN 'failed' THEN 3
			ELSE 4 END`).
		Order("due_at asc").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("query job queue: %w", err)
	}
	return jobs, nil
}
