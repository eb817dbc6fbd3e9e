package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"

	"zonarated-bot/internal/apperror"
	"zonarated-bot/internal/metrics"
	"zonarated-bot/internal/models"
)

type Store interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	RecordReferral(ctx context.Context, referrerID, referredID int64) (int, bool, error)
	MarkVerified(ctx context.Context, id int64) error
	SetReadyToJoin(ctx context.Context, id int64, ready bool) error
	SetInviteLink(ctx context.Context, id int64, link string) error
	MarkJoined(ctx context.Context, id int64) error
	ApproveManually(ctx context.Context, id int64) error
	QualifiedUnverified(ctx context.Context, threshold, limit int) ([]models.User, error)
}

type Policy interface {
	RequiredReferrals(ctx context.Context) (int, error)
	InviteExpiry(ctx context.Context) time.Duration
}

// Membership is the group membership system: it mints single-use invite
// links and answers join requests.
type Membership interface {
	CreateInvite(ctx context.Context, expireAt time.Time) (string, error)
	RevokeInvite(ctx context.Context, link string) error
	Approve(ctx context.Context, userID int64) error
	Decline(ctx context.Context, userID int64) error
}

type Controller struct {
	store      Store
	policy     Policy
	membership Membership
	clock      quartz.Clock
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewController(store Store, policy Policy, membership Membership, clock quartz.Clock, logger *zap.Logger, m *metrics.Metrics) *Controller {
	return &Controller{
		store:      store,
		policy:     policy,
		membership: membership,
		clock:      clock,
		logger:     logger.Named("admission"),
		metrics:    m,
	}
}

type ReferralOutcome struct {
	Created  bool
	Count    int
	Required int
	// Reached is set when this referral is the one that met the threshold.
	Reached bool
}

func (c *Controller) RecordReferral(ctx context.Context, referrerID, referredID int64) (ReferralOutcome, error) {
	if referrerID == referredID {
		return ReferralOutcome{}, apperror.ValidationFailed("users cannot refer themselves")
	}

	count, created, err := c.store.RecordReferral(ctx, referrerID, referredID)
	if err != nil {
		return ReferralOutcome{}, err
	}

	out := ReferralOutcome{Created: created, Count: count}
	required, err := c.policy.RequiredReferrals(ctx)
	if err != nil {
		return out, fmt.Errorf("referral recorded for %d but threshold unknown: %w", referrerID, err)
	}
	out.Required = required
	out.Reached = created && required > 0 && count >= required
	if created {
		c.logger.Info("referral recorded",
			zap.Int64("referrer_id", referrerID),
			zap.Int64("referred_id", referredID),
			zap.Int("count", count),
			zap.Int("required", required))
	}
	return out, nil
}

func (c *Controller) Evaluate(ctx context.Context, userID int64) (Evaluation, *models.User, error) {
	u, err := c.store.GetUser(ctx, userID)
	if err != nil {
		return Evaluation{}, nil, err
	}
	required, err := c.policy.RequiredReferrals(ctx)
	if err != nil {
		return Evaluation{}, u, err
	}
	return Evaluate(*u, required), u, nil
}

type Credential struct {
	Link      string
	ExpiresAt time.Time
}

// IssueCredential marks an eligible user verified and ready, then asks the
// membership system for a single-use link. The flags stay set if the link
// cannot be created so the call can simply be retried. A previously issued
// link is revoked on a best-effort basis.
func (c *Controller) IssueCredential(ctx context.Context, userID int64) (*Credential, error) {
	ev, u, err := c.Evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ev.Eligible {
		return nil, apperror.NotEligible(ev.Missing)
	}

	if err := c.store.MarkVerified(ctx, userID); err != nil {
		return nil, err
	}
	if err := c.store.SetReadyToJoin(ctx, userID, true); err != nil {
		return nil, err
	}

	expiresAt := c.clock.Now().Add(c.policy.InviteExpiry(ctx))
	link, err := c.membership.CreateInvite(ctx, expiresAt)
	c.metrics.CredentialIssued(err)
	if err != nil {
		c.logger.Error("failed to create invite link", zap.Int64("user_id", userID), zap.Error(err))
		return nil, apperror.IssueFailed(err)
	}

	if prev := u.LastInviteLink; prev != "" && prev != link {
		if err := c.membership.RevokeInvite(ctx, prev); err != nil {
			c.logger.Warn("failed to revoke previous invite link", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	if err := c.store.SetInviteLink(ctx, userID, link); err != nil {
		c.logger.Warn("failed to remember invite link", zap.Int64("user_id", userID), zap.Error(err))
	}

	c.logger.Info("invite link issued", zap.Int64("user_id", userID), zap.Time("expires_at", expiresAt))
	return &Credential{Link: link, ExpiresAt: expiresAt}, nil
}

// OnConsumptionAttempt handles a join request. The invite link proves
// nothing by itself: approval is derived from the user's current flags.
// A decline clears readiness but keeps referral progress.
func (c *Controller) OnConsumptionAttempt(ctx context.Context, userID int64) (Decision, *models.User, error) {
	u, err := c.store.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return Decision{}, nil, err
		}
		d := Check(models.User{ID: userID})
		c.metrics.AdmissionDecision("declined")
		if derr := c.membership.Decline(ctx, userID); derr != nil {
			return d, nil, fmt.Errorf("decline unknown user %d: %w", userID, derr)
		}
		c.logger.Info("declined join request from unknown user", zap.Int64("user_id", userID))
		return d, nil, nil
	}

	d := Check(*u)
	if d.Approved {
		if err := c.membership.Approve(ctx, userID); err != nil {
			c.metrics.AdmissionDecision("error")
			return Decision{}, u, fmt.Errorf("approve join request for %d: %w", userID, err)
		}
		if err := c.store.MarkJoined(ctx, userID); err != nil {
			return d, u, err
		}
		u.JoinedGroup, u.ReadyToJoin = true, false
		c.metrics.AdmissionDecision("approved")
		c.logger.Info("approved join request", zap.Int64("user_id", userID))
		return d, u, nil
	}

	c.metrics.AdmissionDecision("declined")
	if err := c.store.SetReadyToJoin(ctx, userID, false); err != nil {
		c.logger.Warn("failed to clear readiness", zap.Int64("user_id", userID), zap.Error(err))
	}
	u.ReadyToJoin = false
	if err := c.membership.Decline(ctx, userID); err != nil {
		return d, u, fmt.Errorf("decline join request for %d: %w", userID, err)
	}
	c.logger.Info("declined join request",
		zap.Int64("user_id", userID),
		zap.Any("failed", d.Failed))
	return d, u, nil
}

// ManualApprove is the operator override. It skips referral counting; the
// join request is still re-checked when it arrives.
func (c *Controller) ManualApprove(ctx context.Context, userID int64) (*models.User, error) {
	if err := c.store.ApproveManually(ctx, userID); err != nil {
		return nil, err
	}
	c.logger.Info("user approved manually", zap.Int64("user_id", userID))
	return c.store.GetUser(ctx, userID)
}

// PromoteQualified marks verified the users whose count already meets the
// threshold. It returns the users it promoted and the threshold used.
func (c *Controller) PromoteQualified(ctx context.Context, limit int) ([]models.User, int, error) {
	required, err := c.policy.RequiredReferrals(ctx)
	if err != nil {
		return nil, 0, err
	}
	if required == 0 {
		return nil, 0, nil
	}

	candidates, err := c.store.QualifiedUnverified(ctx, required, limit)
	if err != nil {
		return nil, required, err
	}

	var (
		promoted []models.User
		errs     []error
	)
	for _, u := range candidates {
		if err := c.store.MarkVerified(ctx, u.ID); err != nil {
			errs = append(errs, fmt.Errorf("promote user %d: %w", u.ID, err))
			continue
		}
		u.VerificationComplete, u.Approved = true, true
		promoted = append(promoted, u)
	}
	if len(promoted) > 0 {
		c.logger.Info("promoted qualified users", zap.Int("count", len(promoted)), zap.Int("required", required))
	}
	return promoted, required, errors.Join(errs...)
}
