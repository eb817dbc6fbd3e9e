package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"zonarated-bot/internal/apperror"
	"zonarated-bot/internal/models"
)

// PrefixCandidates lists the code prefixes tried for a new topic, shortest
// first: the growing upper-cased name, then its first two letters with a
// number appended.
func PrefixCandidates(name string) []string {
	var letters []rune
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			letters = append(letters, unicode.ToUpper(r))
		}
	}
	if len(letters) == 0 {
		letters = []rune{'X'}
	}

	out := make([]string, 0, len(letters)+98)
	for n := 1; n <= len(letters); n++ {
		out = append(out, string(letters[:n]))
	}
	base := string(letters[:min(2, len(letters))])
	for i := 2; i < 100; i++ {
		out = append(out, base+strconv.Itoa(i))
	}
	return out
}

// CreateTopic stores a genre topic under the first free prefix. Marking it as
// the catch-all topic unmarks any previous one.
func (s *Store) CreateTopic(ctx context.Context, name string, threadID int, isAll bool) (*models.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("topic name is empty")
	}

	var topic models.Topic
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Topic{}).Where("LOWER(name) = LOWER(?)", name).Count(&n).Error; err != nil {
			return fmt.Errorf("check topic name: %w", err)
		}
		if n > 0 {
			return apperror.ValidationFailed(fmt.Sprintf("topic %q already exists", name))
		}

		prefix, err := freePrefix(tx, name)
		if err != nil {
			return err
		}
		if isAll {
			if err := tx.Model(&models.Topic{}).Where("is_all = ?", true).Update("is_all", false).Error; err != nil {
				return fmt.Errorf("clear catch-all topic: %w", err)
			}
		}

		topic = models.Topic{Name: name, Prefix: prefix, ThreadID: threadID, IsAll: isAll}
		if err := tx.Create(&topic).Error; err != nil {
			return fmt.Errorf("create topic: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &topic, nil
}

func freePrefix(tx *gorm.DB, name string) (string, error) {
	for _, candidate := range PrefixCandidates(name) {
		var n int64
		if err := tx.Model(&models.Topic{}).Where("prefix = ?", candidate).Count(&n).Error; err != nil {
			return "", fmt.Errorf("check topic prefix: %w", err)
		}
		if n == 0 {
			return candidate, nil
		}
	}
	return "", apperror.ValidationFailed(fmt.Sprintf("no free prefix for topic %q", name))
}

// TopicByName matches case-insensitively.
func (s *Store) TopicByName(ctx context.Context, name string) (*models.Topic, error) {
	var t models.Topic
	err := s.db.WithContext(ctx).Where("LOWER(name) = LOWER(?)", strings.TrimSpace(name)).First(&t).Error
	if err != nil {
		return nil, notFound(err, "topic", name)
	}
	return &t, nil
}

// ListTopics returns the catch-all topic first, then the rest by name.
func (s *Store) ListTopics(ctx context.Context) ([]models.Topic, error) {
	var topics []models.Topic
	if err := s.db.WithContext(ctx).Order("is_all desc, name asc").Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

func (s *Store) DeleteTopic(ctx context.Context, id int64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&models.Topic{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("delete topic %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}
