package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"zonarated-bot/internal/admission"
	"zonarated-bot/internal/apperror"
	"zonarated-bot/internal/conversation"
	"zonarated-bot/internal/delivery"
	"zonarated-bot/internal/i18n"
	"zonarated-bot/internal/models"
	"zonarated-bot/internal/notify"
	"zonarated-bot/internal/settings"
	"zonarated-bot/internal/store"
)

const stopTimeout = 10 * time.Second

// API is the part of the Bot API the handlers call directly.
type API interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error
}

type Admission interface {
	RecordReferral(ctx context.Context, referrerID, referredID int64) (admission.ReferralOutcome, error)
	Evaluate(ctx context.Context, userID int64) (admission.Evaluation, *models.User, error)
	IssueCredential(ctx context.Context, userID int64) (*admission.Credential, error)
	OnConsumptionAttempt(ctx context.Context, userID int64) (admission.Decision, *models.User, error)
	ManualApprove(ctx context.Context, userID int64) (*models.User, error)
}

type Downloads interface {
	CreateSession(ctx context.Context, userID, contentID int64) (*delivery.Offer, error)
	Consume(ctx context.Context, token string, opts delivery.ConsumeOptions) (*delivery.Result, error)
}

// Forum opens topics in the community group.
type Forum interface {
	CreateTopic(ctx context.Context, name string) (int, error)
}

type Deps struct {
	Store         *store.Store
	Settings      *settings.Service
	Admission     Admission
	Maintenance   *admission.Maintenance
	Delivery      Downloads
	Notifier      *notify.Notifier
	Conversations *conversation.Store
	Forum         Forum
	Clock         quartz.Clock
	Logger        *zap.Logger
	// Username is the bot's @handle without the @.
	Username string
	GroupID  int64
}

type Bot struct {
	Instance *telego.Bot
	API      API
	Deps
}

func NewBot(instance *telego.Bot, deps Deps) *Bot {
	deps.Logger = deps.Logger.Named("bot")
	return &Bot{Instance: instance, API: instance, Deps: deps}
}

// wrap adapts fn to telegohandler. Handlers reply to the user themselves and
// never fail the update.
func wrap(fn func(ctx context.Context, update telego.Update)) th.Handler {
	return func(ctx *th.Context, update telego.Update) error {
		fn(ctx.Context(), update)
		return nil
	}
}

// Start long-polls for updates and blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updates, err := b.Instance.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		AllowedUpdates: []string{"message", "callback_query", "chat_join_request"},
	})
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.Instance, updates)
	if err != nil {
		return fmt.Errorf("create bot handler: %w", err)
	}

	handler.Use(b.recoverPanic)
	handler.Use(b.maintenanceGate)

	handler.Handle(wrap(b.onJoinRequest), th.AnyChatJoinRequest())

	handler.Handle(wrap(b.onStart), th.CommandEqual("start"))
	handler.Handle(wrap(b.onHelp), th.CommandEqual("help"))
	handler.Handle(wrap(b.onStatus), th.CommandEqual("status"))
	handler.Handle(wrap(b.onMyLink), th.CommandEqual("mylink"))
	handler.Handle(wrap(b.onAdmin), th.CommandEqual("admin"))
	handler.Handle(wrap(b.onAdmin), th.CommandEqual("panel"))
	handler.Handle(wrap(b.onCancel), th.CommandEqual("cancel"))
	handler.Handle(wrap(b.onQueue), th.CommandEqual("queue"))
	handler.Handle(wrap(b.onUnschedule), th.CommandEqual("unschedule"))
	handler.Handle(wrap(b.onDeleteTopic), th.CommandEqual("deltopic"))

	handler.Handle(wrap(b.onLanguage), th.CallbackDataPrefix("lang_"))
	handler.Handle(wrap(b.onCheckRequirements), th.CallbackDataEqual(notify.CallbackCheckRequirements))
	handler.Handle(wrap(b.onAffiliateDone), th.CallbackDataPrefix(affiliateDonePrefix))
	handler.Handle(wrap(b.onAdminCallback), th.CallbackDataPrefix(adminPrefix))

	handler.Handle(wrap(b.onText), th.AnyMessageWithText())

	go handler.Start()
	b.Logger.Info("bot started", zap.String("username", b.Username))

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()
	if err := handler.StopWithContext(stopCtx); err != nil {
		return fmt.Errorf("stop bot handler: %w", err)
	}
	b.Logger.Info("bot stopped")
	return nil
}

func (b *Bot) recoverPanic(ctx *th.Context, update telego.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.Logger.Error("panic in update handler",
				zap.Int("update_id", update.UpdateID),
				zap.Any("panic", r),
				zap.Stack("stack"))
			err = nil
		}
	}()
	return ctx.Next(update)
}

func (b *Bot) maintenanceGate(ctx *th.Context, update telego.Update) error {
	if b.blockedByMaintenance(ctx.Context(), update) {
		return nil
	}
	return ctx.Next(update)
}

// blockedByMaintenance answers every non-admin update with the maintenance
// notice while maintenance is on, and reports whether it did. Join requests
// always pass: admission re-checks them independently.
func (b *Bot) blockedByMaintenance(ctx context.Context, update telego.Update) bool {
	userID, ok := senderID(update)
	if !ok || update.ChatJoinRequest != nil {
		return false
	}

	active, state := b.Maintenance.Active(ctx)
	if !active || b.Settings.IsAdmin(ctx, userID) {
		return false
	}

	lang := b.language(ctx, userID)
	text := i18n.T(lang, "maintenance", i18n.Args{"until": maintenanceUntil(lang, state.End)})
	if update.CallbackQuery != nil {
		b.answer(ctx, update.CallbackQuery.ID, text, true)
		return true
	}
	if update.Message != nil && update.Message.Chat.Type == telego.ChatTypePrivate {
		b.send(ctx, userID, text, nil)
	}
	return true
}

func maintenanceUntil(lang string, end time.Time) string {
	if end.IsZero() {
		return i18n.T(lang, "maintenance_unknown_end")
	}
	return end.UTC().Format("2006-01-02 15:04 UTC")
}

func senderID(update telego.Update) (int64, bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, true
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID, true
	case update.ChatJoinRequest != nil:
		return update.ChatJoinRequest.From.ID, true
	}
	return 0, false
}

// language returns the stored language of userID, or the default one.
func (b *Bot) language(ctx context.Context, userID int64) string {
	u, err := b.Store.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			b.Logger.Warn("failed to load user language", zap.Int64("user_id", userID), zap.Error(err))
		}
		return i18n.DefaultLanguage
	}
	return i18n.Normalize(u.Language)
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, kb *telego.InlineKeyboardMarkup) {
	params := tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeHTML)
	if kb != nil {
		params = params.WithReplyMarkup(kb)
	}
	if _, err := b.API.SendMessage(ctx, params); err != nil {
		b.Logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) answer(ctx context.Context, queryID, text string, alert bool) {
	params := tu.CallbackQuery(queryID)
	if text != "" {
		params = params.WithText(text)
		if alert {
			params = params.WithShowAlert()
		}
	}
	if err := b.API.AnswerCallbackQuery(ctx, params); err != nil {
		b.Logger.Debug("failed to answer callback query", zap.Error(err))
	}
}
