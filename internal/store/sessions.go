package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"zonarated-bot/internal/models"
)

func (s *Store) CreateSession(ctx context.Context, sess *models.DownloadSession) error {
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return fmt.Errorf("create download session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (*models.DownloadSession, error) {
	var sess models.DownloadSession
	if err := s.db.WithContext(ctx).First(&sess, "token = ?", token).Error; err != nil {
		return nil, notFound(err, "download session", token)
	}
	return &sess, nil
}

// MarkVisited is the consumption linearization point: a single conditional
// update that only one caller can win. It returns false when the session was
// already visited or delivered.
func (s *Store) MarkVisited(ctx context.Context, token string, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.DownloadSession{}).
		Where("token = ? AND visited_at IS NULL AND content_delivered = ?", token, false).
		Updates(map[string]any{
			"visited_at":          at,
			"affiliate_step_done": true,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark session %s visited: %w", token, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// CompleteDelivery flags the session delivered, bumps the content download
// counter and appends the delivery log entry.
func (s *Store) CompleteDelivery(ctx context.Context, sess models.DownloadSession) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.DownloadSession{}).Where("token = ?", sess.Token).
			Update("content_delivered", true).Error
		if err != nil {
			return fmt.Errorf("mark session delivered: %w", err)
		}

		err = tx.Model(&models.Content{}).Where("id = ?", sess.ContentID).
			UpdateColumn("downloads", gorm.Expr("downloads + ?", 1)).Error
		if err != nil {
			return fmt.Errorf("increment downloads: %w", err)
		}

		entry := models.Download{
			UserID:           sess.UserID,
			ContentID:        sess.ContentID,
			SessionToken:     sess.Token,
			AffiliateClicked: true,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("append download log: %w", err)
		}
		return nil
	})
}

func (s *Store) CountDownloads(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Download{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count downloads: %w", err)
	}
	return n, nil
}
