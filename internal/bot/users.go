package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"zonarated-bot/internal/apperror"
	"zonarated-bot/internal/i18n"
	"zonarated-bot/internal/models"
	"zonarated-bot/internal/notify"
	"zonarated-bot/internal/settings"
)

func languageKeyboard() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Indonesia").WithCallbackData("lang_"+i18n.Indonesian),
			tu.InlineKeyboardButton("English").WithCallbackData("lang_"+i18n.English),
		),
	)
}

// shareKeyboard offers the referral link for sharing plus a requirements check.
func (b *Bot) shareKeyboard(lang string, userID int64, checkKey string) *telego.InlineKeyboardMarkup {
	refLink := ReferralLink(b.Username, userID)
	shareText := i18n.T(lang, "share_text", i18n.Args{"ref_link": refLink})
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton(i18n.T(lang, "btn_share")).WithURL(ShareLink(refLink, shareText))),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton(i18n.T(lang, checkKey)).WithCallbackData(notify.CallbackCheckRequirements)),
	)
}

func (b *Bot) onStart(c context.Context, update telego.Update) {
	msg := update.Message
	if msg.From == nil || msg.Chat.Type != telego.ChatTypePrivate {
		return
	}
	from := msg.From

	var arg string
	if _, _, args := tu.ParseCommand(msg.Text); len(args) > 0 {
		arg = args[0]
	}
	payload := ParseStartPayload(arg)

	_, err := b.Store.GetUser(c, from.ID)
	isNew := errors.Is(err, apperror.ErrNotFound)
	if err != nil && !isNew {
		b.Logger.Error("failed to load user", zap.Int64("user_id", from.ID), zap.Error(err))
		b.send(c, from.ID, i18n.T(i18n.DefaultLanguage, "dl_error"), nil)
		return
	}

	record := models.User{ID: from.ID, Username: from.Username, FirstName: from.FirstName}
	referrerID := int64(0)
	if isNew && payload.Kind == PayloadReferral && payload.ReferrerID != from.ID {
		if _, err := b.Store.GetUser(c, payload.ReferrerID); err == nil {
			referrerID = payload.ReferrerID
			record.ReferredBy = &referrerID
		}
	}

	u, err := b.Store.UpsertUser(c, record)
	if err != nil {
		b.Logger.Error("failed to register user", zap.Int64("user_id", from.ID), zap.Error(err))
		b.send(c, from.ID, i18n.T(i18n.DefaultLanguage, "dl_error"), nil)
		return
	}
	if referrerID != 0 {
		b.creditReferral(c, referrerID, u.ID)
	}

	if payload.Kind == PayloadDownload {
		b.startDownload(c, u, payload.ContentID)
		return
	}

	if u.Language == "" {
		b.send(c, u.ID, i18n.T(i18n.DefaultLanguage, "choose_language"), languageKeyboard())
		return
	}
	b.sendWelcome(c, u)
}

func (b *Bot) creditReferral(ctx context.Context, referrerID, referredID int64) {
	out, err := b.Admission.RecordReferral(ctx, referrerID, referredID)
	if err != nil {
		b.Logger.Warn("failed to record referral",
			zap.Int64("referrer_id", referrerID),
			zap.Int64("referred_id", referredID),
			zap.Error(err))
		return
	}
	if !out.Created {
		return
	}

	referrer, err := b.Store.GetUser(ctx, referrerID)
	if err != nil {
		b.Logger.Warn("referrer vanished", zap.Int64("referrer_id", referrerID), zap.Error(err))
		return
	}
	b.Notifier.ReferralCredited(ctx, *referrer, out.Count, out.Required)
	if out.Reached {
		b.Notifier.RequirementsMet(ctx, *referrer, out.Required)
	}
}

func (b *Bot) sendWelcome(ctx context.Context, u *models.User) {
	lang := i18n.Normalize(u.Language)
	required, ok := b.requiredReferrals(ctx, u.ID, lang)
	if !ok {
		return
	}
	welcome := b.Settings.String(ctx, settings.WelcomeMessage, i18n.T(lang, "welcome_default"))

	if required == 0 {
		b.send(ctx, u.ID, i18n.T(lang, "welcome_auto", i18n.Args{"welcome_msg": welcome}),
			tu.InlineKeyboard(tu.InlineKeyboardRow(
				tu.InlineKeyboardButton(i18n.T(lang, "btn_join")).WithCallbackData(notify.CallbackCheckRequirements),
			)))
		return
	}

	text := i18n.T(lang, "welcome", i18n.Args{
		"welcome_msg": welcome,
		"required":    required,
		"ref_link":    ReferralLink(b.Username, u.ID),
	})
	b.send(ctx, u.ID, text, b.shareKeyboard(lang, u.ID, "btn_check"))
}

func (b *Bot) onLanguage(c context.Context, update telego.Update) {
	query := update.CallbackQuery
	lang := i18n.Normalize(strings.TrimPrefix(query.Data, "lang_"))

	if err := b.Store.SetLanguage(c, query.From.ID, lang); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			b.answer(c, query.ID, i18n.T(lang, "not_registered"), true)
			return
		}
		b.Logger.Error("failed to set language", zap.Int64("user_id", query.From.ID), zap.Error(err))
		b.answer(c, query.ID, i18n.T(lang, "dl_error"), true)
		return
	}

	u, err := b.Store.GetUser(c, query.From.ID)
	if err != nil {
		b.answer(c, query.ID, i18n.T(lang, "dl_error"), true)
		return
	}
	b.sendWelcome(c, u)
	b.answer(c, query.ID, "", false)
}

// onCheckRequirements re-evaluates the user and, when eligible, hands out a
// fresh single-use invite link.
func (b *Bot) onCheckRequirements(c context.Context, update telego.Update) {
	query := update.CallbackQuery

	ev, u, err := b.Admission.Evaluate(c, query.From.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			b.answer(c, query.ID, i18n.T(i18n.DefaultLanguage, "not_registered"), true)
			return
		}
		b.Logger.Error("failed to evaluate user", zap.Int64("user_id", query.From.ID), zap.Error(err))
		b.answer(c, query.ID, i18n.T(i18n.DefaultLanguage, "dl_error"), true)
		return
	}
	lang := i18n.Normalize(u.Language)

	if !ev.Eligible {
		text := i18n.T(lang, "not_verified", i18n.Args{
			"count":    ev.Count,
			"required": ev.Required,
			"needed":   ev.Missing,
			"ref_link": ReferralLink(b.Username, u.ID),
		})
		b.send(c, u.ID, text, b.shareKeyboard(lang, u.ID, "btn_check_again"))
		b.answer(c, query.ID, i18n.T(lang, "check_requirements_first"), true)
		return
	}

	cred, err := b.Admission.IssueCredential(c, u.ID)
	if err != nil {
		b.answer(c, query.ID, i18n.T(lang, "invite_failed"), true)
		return
	}

	expiryMin := int(b.Settings.InviteExpiry(c).Minutes())
	text := i18n.T(lang, "verified_ready", i18n.Args{
		"count":      ev.Count,
		"required":   ev.Required,
		"expiry_min": expiryMin,
	})
	b.send(c, u.ID, text, tu.InlineKeyboard(tu.InlineKeyboardRow(
		tu.InlineKeyboardButton(i18n.T(lang, "btn_join_supergroup")).WithURL(cred.Link),
	)))
	b.answer(c, query.ID, i18n.T(lang, "invite_created"), false)
}

func (b *Bot) onHelp(c context.Context, update telego.Update) {
	msg := update.Message
	if msg.From == nil {
		return
	}
	b.send(c, msg.Chat.ID, i18n.T(b.language(c, msg.From.ID), "help_text"), nil)
}

func (b *Bot) onStatus(c context.Context, update telego.Update) {
	msg := update.Message
	if msg.From == nil {
		return
	}

	u, ok := b.registeredUser(c, msg.From.ID)
	if !ok {
		return
	}
	lang := i18n.Normalize(u.Language)
	required, ok := b.requiredReferrals(c, u.ID, lang)
	if !ok {
		return
	}

	verStatus := i18n.T(lang, "incomplete")
	if u.VerificationComplete {
		verStatus = i18n.T(lang, "complete")
	}
	text := i18n.T(lang, "status_text", i18n.Args{
		"count":      u.ReferralCount,
		"required":   required,
		"sg_status":  i18n.YesNo(lang, u.JoinedGroup),
		"ver_status": verStatus,
		"ref_link":   ReferralLink(b.Username, u.ID),
	})
	b.send(c, u.ID, text, nil)
}

func (b *Bot) onMyLink(c context.Context, update telego.Update) {
	msg := update.Message
	if msg.From == nil {
		return
	}

	u, ok := b.registeredUser(c, msg.From.ID)
	if !ok {
		return
	}
	lang := i18n.Normalize(u.Language)
	required, ok := b.requiredReferrals(c, u.ID, lang)
	if !ok {
		return
	}
	text := i18n.T(lang, "mylink_text", i18n.Args{
		"ref_link": ReferralLink(b.Username, u.ID),
		"count":    u.ReferralCount,
		"required": required,
	})
	b.send(c, u.ID, text, b.shareKeyboard(lang, u.ID, "btn_check"))
}

// requiredReferrals reads the referral threshold, telling userID to try again
// later when it cannot be read.
func (b *Bot) requiredReferrals(ctx context.Context, userID int64, lang string) (int, bool) {
	required, err := b.Settings.RequiredReferrals(ctx)
	if err != nil {
		b.Logger.Error("failed to read referral threshold", zap.Error(err))
		b.send(ctx, userID, i18n.T(lang, "dl_error"), nil)
		return 0, false
	}
	return required, true
}

// registeredUser loads userID, telling the user to /start first if unknown.
func (b *Bot) registeredUser(ctx context.Context, userID int64) (*models.User, bool) {
	u, err := b.Store.GetUser(ctx, userID)
	if err == nil {
		return u, true
	}
	if errors.Is(err, apperror.ErrNotFound) {
		b.send(ctx, userID, i18n.T(i18n.DefaultLanguage, "not_registered"), nil)
	} else {
		b.Logger.Error("failed to load user", zap.Int64("user_id", userID), zap.Error(err))
		b.send(ctx, userID, i18n.T(i18n.DefaultLanguage, "dl_error"), nil)
	}
	return nil, false
}

// onText routes operator input to an open conversation, and everything else
// to the fallback reply.
func (b *Bot) onText(c context.Context, update telego.Update) {
	msg := update.Message
	if msg.From == nil || msg.Chat.Type != telego.ChatTypePrivate {
		return
	}

	if b.Settings.IsAdmin(c, msg.From.ID) {
		if handled := b.handleAdminInput(c, msg.From.ID, msg.Text); handled {
			return
		}
	}
	b.fallback(c, msg.From.ID)
}

func (b *Bot) fallback(ctx context.Context, userID int64) {
	u, err := b.Store.GetUser(ctx, userID)
	if err != nil {
		startLink := "https://t.me/" + b.Username + "?start=start"
		b.send(ctx, userID, i18n.T(i18n.DefaultLanguage, "fallback_new"),
			tu.InlineKeyboard(tu.InlineKeyboardRow(tu.InlineKeyboardButton("/start").WithURL(startLink))))
		return
	}

	lang := i18n.Normalize(u.Language)
	required, ok := b.requiredReferrals(ctx, u.ID, lang)
	if !ok {
		return
	}
	text := i18n.T(lang, "fallback_registered", i18n.Args{
		"ref_link": ReferralLink(b.Username, u.ID),
		"count":    u.ReferralCount,
		"required": required,
	})
	b.send(ctx, userID, text, b.shareKeyboard(lang, u.ID, "btn_check"))
}
