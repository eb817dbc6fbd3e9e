package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"zonarated-bot/internal/apperror"
	"zonarated-bot/internal/delivery"
	"zonarated-bot/internal/notify"
)

type Consumer interface {
	Consume(ctx context.Context, token string, opts delivery.ConsumeOptions) (*delivery.Result, error)
}

type FailureNotifier interface {
	DownloadFailed(ctx context.Context, userID int64, lang string) notify.Result
}

type DownloadHandler struct {
	consumer    Consumer
	notifier    FailureNotifier
	botUsername string
	logger      *zap.Logger
}

func NewDownloadHandler(consumer Consumer, notifier FailureNotifier, botUsername string, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		consumer:    consumer,
		notifier:    notifier,
		botUsername: botUsername,
		logger:      logger,
	}
}

func (h *DownloadHandler) fallbackURL() string {
	return "https://t.me/" + h.botUsername
}

// HandleRedirect consumes the session named in the path, delivers its content
// in chat and redirects the browser to the resolved target.
func (h *DownloadHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if !delivery.WellFormedToken(token) {
		http.Error(w, "Invalid link", http.StatusBadRequest)
		return
	}

	res, err := h.consumer.Consume(r.Context(), token, delivery.ConsumeOptions{Entrypoint: delivery.EntryRedirect})
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		http.Error(w, "Link not found", http.StatusNotFound)
		return
	case errors.Is(err, apperror.ErrExpired):
		http.Error(w, "This link has expired", http.StatusGone)
		return
	case errors.Is(err, apperror.ErrAlreadyConsumed):
		http.Error(w, "This link has already been used", http.StatusGone)
		return
	case errors.Is(err, apperror.ErrDeliveryFailed) && res != nil:
		if res.User != nil {
			if n := h.notifier.DownloadFailed(r.Context(), res.User.ID, res.User.Language); n.Err != nil {
				h.logger.Warn("failed to report delivery failure", zap.Int64("user_id", res.User.ID), zap.Error(n.Err))
			}
		}
	case res != nil:
		// Content went out; only the bookkeeping after it failed.
		h.logger.Error("download finished with error", zap.String("token", token), zap.Error(err))
	default:
		h.logger.Error("download failed", zap.String("token", token), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	target := res.RedirectURL
	if target == "" {
		target = h.fallbackURL()
	}
	http.Redirect(w, r, target, http.StatusFound)
}
