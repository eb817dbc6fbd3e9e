// Package settings exposes the runtime key/value configuration stored in the
// database. Values are read fresh on every call.
package settings

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"zonarated-bot/internal/apperror"
)

const (
	RequiredReferrals      = "REQUIRED_REFERRALS"
	InviteExpirySeconds    = "INVITE_EXPIRY_SECONDS"
	AdminIDs               = "ADMIN_IDS"
	AffiliateLink          = "AFFILIATE_LINK"
	WelcomeMessage         = "WELCOME_MESSAGE"
	ShrinkMeAPIKey         = "SHRINKME_API_KEY"
	ShrinkMeEnabled        = "SHRINKME_ENABLED"
	RedirectBaseURL        = "REDIRECT_BASE_URL"
	DownloadSessionMinutes = "DOWNLOAD_SESSION_MINUTES"
	PublishBatchSize       = "PUBLISH_BATCH_SIZE"
	MaintenanceMode        = "MAINTENANCE_MODE"
	MaintenanceStart       = "MAINTENANCE_START"
	MaintenanceEnd         = "MAINTENANCE_END"
)

const (
	DefaultInviteExpiry    = 300 * time.Second
	DefaultSessionTTL      = 10 * time.Minute
	DefaultPublishBatch    = 5
	maxRequiredReferrals   = 10
	minInviteExpirySeconds = 60
	maxInviteExpirySeconds = 3600
)

type KV interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

type Service struct {
	kv     KV
	logger *zap.Logger
}

func New(kv KV, logger *zap.Logger) *Service {
	return &Service{kv: kv, logger: logger.Named("settings")}
}

func (s *Service) raw(ctx context.Context, key string) (string, bool) {
	v, ok, err := s.kv.GetSetting(ctx, key)
	if err != nil {
		s.logger.Warn("failed to read setting, using default", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return v, ok
}

func (s *Service) String(ctx context.Context, key, def string) string {
	if v, ok := s.raw(ctx, key); ok {
		return v
	}
	return def
}

func (s *Service) Int(ctx context.Context, key string, def int) int {
	v, ok := s.raw(ctx, key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		s.logger.Warn("setting is not an integer", zap.String("key", key), zap.String("value", v))
		return def
	}
	return n
}

func (s *Service) Bool(ctx context.Context, key string, def bool) bool {
	v, ok := s.raw(ctx, key)
	if !ok {
		return def
	}
	b, ok := parseBool(v)
	if !ok {
		return def
	}
	return b
}

// Flag reads a boolean without falling back on errors. An unset key is false.
func (s *Service) Flag(ctx context.Context, key string) (bool, error) {
	v, ok, err := s.kv.GetSetting(ctx, key)
	if err != nil {
		return false, fmt.Errorf("read setting %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	b, ok := parseBool(v)
	if !ok {
		return false, apperror.ValidationFailed(fmt.Sprintf("%s has invalid value %q", key, v))
	}
	return b, nil
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// IntList parses a comma separated list, skipping entries that are not integers.
func (s *Service) IntList(ctx context.Context, key string) []int64 {
	v, ok := s.raw(ctx, key)
	if !ok {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(v, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Time reads an RFC 3339 timestamp. A missing or unparsable value yields the zero time.
func (s *Service) Time(ctx context.Context, key string) time.Time {
	v, ok := s.raw(ctx, key)
	if !ok || v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := Validate(key, value); err != nil {
		return err
	}
	return s.kv.SetSetting(ctx, key, value)
}

func (s *Service) SetTime(ctx context.Context, key string, t time.Time) error {
	if t.IsZero() {
		return s.kv.DeleteSetting(ctx, key)
	}
	return s.kv.SetSetting(ctx, key, t.UTC().Format(time.RFC3339))
}

// Validate checks operator input for the keys that have constraints.
func Validate(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case RequiredReferrals:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > maxRequiredReferrals {
			return apperror.ValidationFailed(fmt.Sprintf("%s must be a number between 0 and %d", key, maxRequiredReferrals))
		}
	case InviteExpirySeconds:
		n, err := strconv.Atoi(value)
		if err != nil || n < minInviteExpirySeconds || n > maxInviteExpirySeconds {
			return apperror.ValidationFailed(fmt.Sprintf("%s must be between %d and %d seconds", key, minInviteExpirySeconds, maxInviteExpirySeconds))
		}
	case AffiliateLink, RedirectBaseURL:
		if value == "" {
			return nil
		}
		u, err := url.Parse(value)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperror.ValidationFailed(fmt.Sprintf("%s must be an http(s) link", key))
		}
	}
	return nil
}

// RequiredReferrals is the admission threshold. Zero admits everyone, so a
// failed or unparsable read is returned as an error instead of a default.
func (s *Service) RequiredReferrals(ctx context.Context) (int, error) {
	v, ok, err := s.kv.GetSetting(ctx, RequiredReferrals)
	if err != nil {
		return 0, fmt.Errorf("read setting %s: %w", RequiredReferrals, err)
	}
	if !ok {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed(fmt.Sprintf("%s has invalid value %q", RequiredReferrals, v))
	}
	return n, nil
}

func (s *Service) InviteExpiry(ctx context.Context) time.Duration {
	n := s.Int(ctx, InviteExpirySeconds, int(DefaultInviteExpiry/time.Second))
	if n <= 0 {
		return DefaultInviteExpiry
	}
	return time.Duration(n) * time.Second
}

func (s *Service) SessionTTL(ctx context.Context) time.Duration {
	n := s.Int(ctx, DownloadSessionMinutes, int(DefaultSessionTTL/time.Minute))
	if n <= 0 {
		return DefaultSessionTTL
	}
	return time.Duration(n) * time.Minute
}

func (s *Service) PublishBatchSize(ctx context.Context) int {
	n := s.Int(ctx, PublishBatchSize, DefaultPublishBatch)
	if n <= 0 {
		return DefaultPublishBatch
	}
	return n
}

func (s *Service) AffiliateLink(ctx context.Context) string {
	return strings.TrimSpace(s.String(ctx, AffiliateLink, ""))
}

func (s *Service) RedirectBaseURL(ctx context.Context) string {
	return strings.TrimRight(strings.TrimSpace(s.String(ctx, RedirectBaseURL, "")), "/")
}

func (s *Service) IsAdmin(ctx context.Context, userID int64) bool {
	for _, id := range s.IntList(ctx, AdminIDs) {
		if id == userID {
			return true
		}
	}
	return false
}
