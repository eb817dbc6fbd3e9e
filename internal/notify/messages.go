package notify

import (
	"context"
	"strings"
	"time"

	"zonarated-bot/internal/i18n"
	"zonarated-bot/internal/models"
)

const (
	CallbackCheckRequirements = "check_req"

	qualifiedNoticeTTL = 30 * 24 * time.Hour
)

func JoinKeyboard(lang string) [][]Button {
	return [][]Button{{{Text: i18n.T(lang, "btn_join"), CallbackData: CallbackCheckRequirements}}}
}

func (n *Notifier) ReferralCredited(ctx context.Context, referrer models.User, count, required int) Result {
	return n.Send(ctx, referrer.ID, Message{
		Text: i18n.T(referrer.Language, "referral_credited", i18n.Args{"count": count, "required": required}),
	})
}

// RequirementsMet tells the user they reached the referral target. It is sent
// at most once per user, whichever of the referral handler and the
// qualification sweep gets there first.
func (n *Notifier) RequirementsMet(ctx context.Context, u models.User, required int) Result {
	return n.SendOnce(ctx, QualifiedKey(u.ID), qualifiedNoticeTTL, u.ID, Message{
		Text:    i18n.T(u.Language, "referral_complete", i18n.Args{"count": u.ReferralCount, "required": required}),
		Buttons: JoinKeyboard(u.Language),
	})
}

func (n *Notifier) JoinApproved(ctx context.Context, u models.User) Result {
	return n.Send(ctx, u.ID, Message{Text: i18n.T(u.Language, "join_approved")})
}

// JoinDeclined lists the reason keys that failed, in the order given.
func (n *Notifier) JoinDeclined(ctx context.Context, userID int64, lang string, reasonKeys []string) Result {
	reasons := make([]string, 0, len(reasonKeys))
	for _, k := range reasonKeys {
		reasons = append(reasons, i18n.T(lang, k))
	}
	return n.Send(ctx, userID, Message{
		Text:    i18n.T(lang, "join_declined", i18n.Args{"reasons": strings.Join(reasons, "\n")}),
		Buttons: [][]Button{{{Text: i18n.T(lang, "btn_check_again"), CallbackData: CallbackCheckRequirements}}},
	})
}

func (n *Notifier) AdminApproved(ctx context.Context, u models.User) Result {
	return n.Send(ctx, u.ID, Message{
		Text:    i18n.T(u.Language, "admin_approved_you"),
		Buttons: JoinKeyboard(u.Language),
	})
}

func (n *Notifier) DownloadFailed(ctx context.Context, userID int64, lang string) Result {
	return n.Send(ctx, userID, Message{Text: i18n.T(lang, "dl_error")})
}
