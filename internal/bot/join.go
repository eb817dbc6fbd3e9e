package bot

import (
	"context"

	"github.com/mymmrac/telego"
	"go.uber.org/zap"

	"zonarated-bot/internal/i18n"
)

// onJoinRequest decides join requests for the configured group. Requests for
// any other chat are ignored.
func (b *Bot) onJoinRequest(c context.Context, update telego.Update) {
	req := update.ChatJoinRequest
	if req.Chat.ID != b.GroupID {
		return
	}
	userID := req.From.ID

	d, u, err := b.Admission.OnConsumptionAttempt(c, userID)
	if err != nil {
		b.Logger.Error("failed to decide join request", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	switch {
	case u == nil:
		b.Notifier.JoinDeclined(c, userID, i18n.Normalize(req.From.LanguageCode), d.ReasonKeys())
	case d.Approved:
		b.Notifier.JoinApproved(c, *u)
	default:
		b.Notifier.JoinDeclined(c, u.ID, u.Language, d.ReasonKeys())
	}
}
