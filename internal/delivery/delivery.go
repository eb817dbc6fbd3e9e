package delivery

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"zonarated-bot/internal/apperror"
	"zonarated-bot/internal/metrics"
	"zonarated-bot/internal/models"
)

// Entry points through which a session can be consumed.
const (
	EntryRedirect = "redirect"
	EntryLegacy   = "legacy"
)

type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetContent(ctx context.Context, id int64) (*models.Content, error)
	IncrementViews(ctx context.Context, id int64) error
	CacheThumbnail(ctx context.Context, id int64, fileID string) error
	CreateSession(ctx context.Context, sess *models.DownloadSession) error
	GetSession(ctx context.Context, token string) (*models.DownloadSession, error)
	MarkVisited(ctx context.Context, token string, at time.Time) (bool, error)
	CompleteDelivery(ctx context.Context, sess models.DownloadSession) error
}

type Policy interface {
	SessionTTL(ctx context.Context) time.Duration
	AffiliateLink(ctx context.Context) string
}

type Receipt struct {
	Kind string
	// ThumbnailFileID is the handle Telegram returned for an uploaded preview.
	ThumbnailFileID string
}

// Deliverer hands the content to the user over the messaging transport.
type Deliverer interface {
	Deliver(ctx context.Context, user models.User, content models.Content) (Receipt, error)
}

type Controller struct {
	store     Store
	policy    Policy
	deliverer Deliverer
	clock     quartz.Clock
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewController(store Store, policy Policy, deliverer Deliverer, clock quartz.Clock, logger *zap.Logger, m *metrics.Metrics) *Controller {
	return &Controller{
		store:     store,
		policy:    policy,
		deliverer: deliverer,
		clock:     clock,
		logger:    logger.Named("delivery"),
		metrics:   m,
	}
}

// NewToken returns 32 lowercase hex characters from a random UUID.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// WellFormedToken reports whether token has the shape NewToken produces.
func WellFormedToken(token string) bool {
	if len(token) != 32 {
		return false
	}
	for _, r := range token {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

// ResolveRedirect picks the first non-empty of the content's own affiliate
// link, the global affiliate link, the shortened URL and the raw locator.
func ResolveRedirect(c models.Content, globalAffiliate string) string {
	for _, candidate := range []string{c.AffiliateLink, globalAffiliate, c.ShortenedURL, c.FileURL} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return candidate
		}
	}
	return ""
}

type Offer struct {
	Session     models.DownloadSession
	Content     models.Content
	RedirectURL string
}

// CreateSession opens a fresh download session for a verified user. Older
// sessions for the same pair are left alone and simply stop being shown.
func (c *Controller) CreateSession(ctx context.Context, userID, contentID int64) (*Offer, error) {
	u, err := c.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.VerificationComplete {
		return nil, apperror.Forbidden("download requires a verified user")
	}
	content, err := c.store.GetContent(ctx, contentID)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now().UTC()
	sess := models.DownloadSession{
		Token:     NewToken(),
		UserID:    userID,
		ContentID: contentID,
		CreatedAt: now,
		ExpiresAt: now.Add(c.policy.SessionTTL(ctx)),
	}
	if err := c.store.CreateSession(ctx, &sess); err != nil {
		return nil, err
	}
	if err := c.store.IncrementViews(ctx, contentID); err != nil {
		c.logger.Warn("failed to count view", zap.Int64("content_id", contentID), zap.Error(err))
	}

	c.logger.Debug("download session created",
		zap.Int64("user_id", userID),
		zap.Int64("content_id", contentID),
		zap.Time("expires_at", sess.ExpiresAt))

	return &Offer{
		Session:     sess,
		Content:     *content,
		RedirectURL: ResolveRedirect(*content, c.policy.AffiliateLink(ctx)),
	}, nil
}

type ConsumeOptions struct {
	Entrypoint string
	// UserID, when set, must own the session. The in-chat confirmation uses it.
	UserID *int64
}

type Result struct {
	Session     models.DownloadSession
	Content     models.Content
	User        *models.User
	RedirectURL string
}

// Consume validates the token and delivers its content at most once.
// Checks run in order: unknown, expired, already used. The conditional
// MarkVisited update is the only write that decides the winner. When the
// delivery itself fails the Result is still returned alongside a
// DeliveryFailed error and the session stays visited but undelivered.
func (c *Controller) Consume(ctx context.Context, token string, opts ConsumeOptions) (*Result, error) {
	res, err := c.consume(ctx, token, opts)
	c.metrics.Consumption(entrypoint(opts), outcome(err))
	return res, err
}

func (c *Controller) consume(ctx context.Context, token string, opts ConsumeOptions) (*Result, error) {
	sess, err := c.store.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if opts.UserID != nil && *opts.UserID != sess.UserID {
		return nil, apperror.NotFound("download session", token)
	}

	now := c.clock.Now().UTC()
	if now.After(sess.ExpiresAt) {
		return nil, apperror.Expired("download session", token)
	}
	if sess.VisitedAt != nil || sess.ContentDelivered {
		return nil, apperror.AlreadyConsumed("download session", token)
	}

	content, err := c.store.GetContent(ctx, sess.ContentID)
	if err != nil {
		return nil, err
	}

	won, err := c.store.MarkVisited(ctx, token, now)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, apperror.AlreadyConsumed("download session", token)
	}
	sess.VisitedAt = &now
	sess.AffiliateStepDone = true

	res := &Result{
		Session:     *sess,
		Content:     *content,
		RedirectURL: ResolveRedirect(*content, c.policy.AffiliateLink(ctx)),
	}

	u, err := c.store.GetUser(ctx, sess.UserID)
	if err != nil {
		c.logger.Error("session owner missing", zap.String("token", token), zap.Error(err))
		return res, apperror.DeliveryFailed(token, err)
	}
	res.User = u

	receipt, err := c.deliverer.Deliver(ctx, *u, *content)
	c.metrics.Delivery(receipt.Kind, err)
	if err != nil {
		c.logger.Error("delivery failed, session left undelivered",
			zap.String("token", token),
			zap.Int64("user_id", u.ID),
			zap.Int64("content_id", content.ID),
			zap.Error(err))
		return res, apperror.DeliveryFailed(token, err)
	}

	if receipt.ThumbnailFileID != "" && content.ThumbnailFileID == "" {
		if err := c.store.CacheThumbnail(ctx, content.ID, receipt.ThumbnailFileID); err != nil {
			c.logger.Warn("failed to cache thumbnail", zap.Int64("content_id", content.ID), zap.Error(err))
		}
	}

	if err := c.store.CompleteDelivery(ctx, *sess); err != nil {
		c.logger.Error("content delivered but bookkeeping failed", zap.String("token", token), zap.Error(err))
		return res, fmt.Errorf("record delivery for session %s: %w", token, err)
	}
	res.Session.ContentDelivered = true

	c.logger.Info("content delivered",
		zap.String("entrypoint", entrypoint(opts)),
		zap.Int64("user_id", u.ID),
		zap.Int64("content_id", content.ID),
		zap.String("code", content.Code))
	return res, nil
}

func entrypoint(opts ConsumeOptions) string {
	if opts.Entrypoint == "" {
		return EntryRedirect
	}
	return opts.Entrypoint
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperror.ErrExpired):
		return "expired"
	case errors.Is(err, apperror.ErrAlreadyConsumed):
		return "already_consumed"
	case errors.Is(err, apperror.ErrDeliveryFailed):
		return "delivery_failed"
	default:
		return "error"
	}
}

// ParseContentID parses the id carried in a dl_ deep link.
func ParseContentID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(fmt.Sprintf("invalid content id %q", s))
	}
	return id, nil
}
