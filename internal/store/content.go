package store

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"zonarated-bot/internal/models"
)

func (s *Store) CreateContent(ctx context.Context, c *models.Content) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create content: %w", err)
	}
	return nil
}

func (s *Store) GetContent(ctx context.Context, id int64) (*models.Content, error) {
	var c models.Content
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "content", strconv.FormatInt(id, 10))
	}
	return &c, nil
}

func (s *Store) ContentCodeExists(ctx context.Context, code string) (bool, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Content{}).Where("code = ?", code).Count(&n).Error; err != nil {
		return false, fmt.Errorf("check content code: %w", err)
	}
	return n > 0, nil
}

func (s *Store) SetShortenedURL(ctx context.Context, id int64, url string) error {
	return s.updateContent(ctx, id, "shortened_url", url)
}

// SetMessageID records where the content was announced.
func (s *Store) SetMessageID(ctx context.Context, id int64, messageID, threadID int) error {
	err := s.db.WithContext(ctx).Model(&models.Content{}).Where("id = ?", id).
		Updates(map[string]any{"message_id": messageID, "thread_id": threadID}).Error
	if err != nil {
		return fmt.Errorf("update content %d message: %w", id, err)
	}
	return nil
}

func (s *Store) DeleteContent(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Delete(&models.Content{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete content %d: %w", id, err)
	}
	return nil
}

// CacheThumbnail stores the delivery handle unless one is already cached.
func (s *Store) CacheThumbnail(ctx context.Context, id int64, fileID string) error {
	err := s.db.WithContext(ctx).Model(&models.Content{}).
		Where("id = ? AND (thumbnail_file_id = '' OR thumbnail_file_id IS NULL)", id).
		Update("thumbnail_file_id", fileID).Error
	if err != nil {
		return fmt.Errorf("cache thumbnail for content %d: %w", id, err)
	}
	return nil
}

func (s *Store) IncrementViews(ctx context.Context, id int64) error {
	err := s.db.WithContext(ctx).Model(&models.Content{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
	if err != nil {
		return fmt.Errorf("increment views for content %d: %w", id, err)
	}
	return nil
}

func (s *Store) updateContent(ctx context.Context, id int64, column string, value any) error {
	if err := s.db.WithContext(ctx).Model(&models.Content{}).Where("id = ?", id).Update(column, value).Error; err != nil {
		return fmt.Errorf("update content %d %s: %w", id, column, err)
	}
	return nil
}
