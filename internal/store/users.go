package store

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"zonarated-bot/internal/apperror"
	"zonarated-bot/internal/models"
)

// UpsertUser creates the user on first contact. For an existing user only the
// profile names are refreshed; referral progress and flags are untouched.
func (s *Store) UpsertUser(ctx context.Context, u models.User) (*models.User, error) {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "updated_at"}),
	}).Create(&u).Error
	if err != nil {
		return nil, fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	return s.GetUser(ctx, u.ID)
}

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user", strconv.FormatInt(id, 10))
	}
	return &u, nil
}

func (s *Store) updateUser(ctx context.Context, id int64, values map[string]any) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("update user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return nil
}

func (s *Store) SetLanguage(ctx context.Context, id int64, lang string) error {
	return s.updateUser(ctx, id, map[string]any{"language": lang})
}

// MarkVerified records that the referral requirement was met. Verified users
// are also approved, matching the operator override path.
func (s *Store) MarkVerified(ctx context.Context, id int64) error {
	return s.updateUser(ctx, id, map[string]any{
		"verification_complete": true,
		"approved":              true,
	})
}

func (s *Store) SetReadyToJoin(ctx context.Context, id int64, ready bool) error {
	return s.updateUser(ctx, id, map[string]any{"ready_to_join": ready})
}

func (s *Store) SetInviteLink(ctx context.Context, id int64, link string) error {
	return s.updateUser(ctx, id, map[string]any{"last_invite_link": link})
}

// MarkJoined is only called after an approved consumption event.
func (s *Store) MarkJoined(ctx context.Context, id int64) error {
	return s.updateUser(ctx, id, map[string]any{
		"joined_group":  true,
		"ready_to_join": false,
	})
}

// ApproveManually is the operator override: it bypasses referral counting but
// still leaves the final decision to the consumption-time re-check.
func (s *Store) ApproveManually(ctx context.Context, id int64) error {
	return s.updateUser(ctx, id, map[string]any{
		"verification_complete": true,
		"approved":              true,
		"ready_to_join":         true,
	})
}

// QualifiedUnverified lists users whose referral count meets the threshold but
// who were never marked verified.
func (s *Store) QualifiedUnverified(ctx context.Context, threshold, limit int) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("referral_count >= ? AND verification_complete = ?", threshold, false).
		Order("id asc").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("query qualified users: %w", err)
	}
	return users, nil
}

type UserStats struct {
	Total    int64
	Verified int64
	Joined   int64
}

func (s *Store) UserStats(ctx context.Context) (UserStats, error) {
	var st UserStats
	db := s.db.WithContext(ctx).Model(&models.User{})
	if err := db.Count(&st.Total).Error; err != nil {
		return st, fmt.Errorf("count users: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("verification_complete = ?", true).Count(&st.Verified).Error; err != nil {
		return st, fmt.Errorf("count verified users: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("joined_group = ?", true).Count(&st.Joined).Error; err != nil {
		return st, fmt.Errorf("count joined users: %w", err)
	}
	return st, nil
}

func (s *Store) UserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Order("id asc").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

// RecordReferral inserts the (referrer, referred) pair and bumps the
// referrer's counter in one transaction. Re-inserting an existing pair is a
// no-op; created reports whether this call added the row.
func (s *Store) RecordReferral(ctx context.Context, referrerID, referredID int64) (count int, created bool, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var referrer models.User
		if err := tx.First(&referrer, "id = ?", referrerID).Error; err != nil {
			return notFound(err, "user", strconv.FormatInt(referrerID, 10))
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.Referral{ReferrerID: referrerID, ReferredID: referredID})
		if res.Error != nil {
			return fmt.Errorf("insert referral: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			count = referrer.ReferralCount
			return nil
		}

		err := tx.Model(&models.User{}).Where("id = ?", referrerID).
			UpdateColumn("referral_count", gorm.Expr("referral_count + ?", 1)).Error
		if err != nil {
			return fmt.Errorf("increment referral count: %w", err)
		}
		created = true

		// Re-read after the increment so concurrent referrals each see their own total.
		var current int
		if err := tx.Model(&models.User{}).Where("id = ?", referrerID).
			Select("referral_count").Scan(&current).Error; err != nil {
			return fmt.Errorf("read referral count: %w", err)
		}
		count = current
		return nil
	})
	return count, created, err
}
