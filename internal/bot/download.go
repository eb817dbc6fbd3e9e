package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"zonarated-bot/internal/apperror"
	"zonarated-bot/internal/delivery"
	"zonarated-bot/internal/i18n"
	"zonarated-bot/internal/models"
)

const affiliateDonePrefix = "aff_done_"

// startDownload opens a download session and shows the user where to go next:
// the redirect link when a redirect base is configured, otherwise the
// affiliate link with the in-chat confirmation button.
func (b *Bot) startDownload(ctx context.Context, u *models.User, contentID int64) {
	lang := i18n.Normalize(u.Language)

	offer, err := b.Delivery.CreateSession(ctx, u.ID, contentID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrForbidden):
		b.send(ctx, u.ID, i18n.T(lang, "dl_not_verified", i18n.Args{"bot": b.Username}), nil)
		return
	case errors.Is(err, apperror.ErrNotFound):
		b.send(ctx, u.ID, i18n.T(lang, "dl_not_found"), nil)
		return
	default:
		b.Logger.Error("failed to create download session",
			zap.Int64("user_id", u.ID),
			zap.Int64("content_id", contentID),
			zap.Error(err))
		b.send(ctx, u.ID, i18n.T(lang, "dl_error"), nil)
		return
	}

	if base := b.Settings.RedirectBaseURL(ctx); base != "" {
		link := base + "/" + offer.Session.Token
		b.send(ctx, u.ID, i18n.T(lang, "dl_affiliate_prompt"), tu.InlineKeyboard(tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(i18n.T(lang, "btn_open_link")).WithURL(link),
		)))
		return
	}

	var rows [][]telego.InlineKeyboardButton
	if offer.RedirectURL != "" {
		rows = append(rows, tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(i18n.T(lang, "btn_open_link")).WithURL(offer.RedirectURL),
		))
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton(i18n.T(lang, "btn_affiliate_done")).WithCallbackData(affiliateDonePrefix+offer.Session.Token),
	))
	b.send(ctx, u.ID, i18n.T(lang, "dl_affiliate_confirm"), tu.InlineKeyboard(rows...))
}

// onAffiliateDone is the in-chat confirmation kept for sessions handed out
// before the redirect route existed. Only the session owner may consume it.
func (b *Bot) onAffiliateDone(c context.Context, update telego.Update) {
	query := update.CallbackQuery
	userID := query.From.ID
	lang := b.language(c, userID)

	token := strings.TrimPrefix(query.Data, affiliateDonePrefix)
	if !delivery.WellFormedToken(token) {
		b.answer(c, query.ID, i18n.T(lang, "dl_not_found"), true)
		return
	}

	_, err := b.Delivery.Consume(c, token, delivery.ConsumeOptions{
		Entrypoint: delivery.EntryLegacy,
		UserID:     &userID,
	})
	switch {
	case err == nil:
		b.answer(c, query.ID, "", false)
	case errors.Is(err, apperror.ErrNotFound):
		b.answer(c, query.ID, i18n.T(lang, "dl_not_found"), true)
	case errors.Is(err, apperror.ErrExpired):
		b.answer(c, query.ID, i18n.T(lang, "dl_session_expired"), true)
	case errors.Is(err, apperror.ErrAlreadyConsumed):
		b.answer(c, query.ID, i18n.T(lang, "dl_already_used"), true)
	default:
		if !errors.Is(err, apperror.ErrDeliveryFailed) {
			b.Logger.Error("legacy download confirmation failed", zap.String("token", token), zap.Error(err))
		}
		b.answer(c, query.ID, i18n.T(lang, "dl_error"), true)
	}
}
