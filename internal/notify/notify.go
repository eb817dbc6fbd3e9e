// Package notify sends best-effort messages to users. Failures never abort
// the caller; they are reported through Result so the caller can decide
// whether to log, count or ignore them.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"zonarated-bot/internal/metrics"
)

type Button struct {
	Text         string
	URL          string
	CallbackData string
}

type Message struct {
	Text    string
	Buttons [][]Button
}

type Transport interface {
	Send(ctx context.Context, chatID int64, msg Message) error
}

type Status int

const (
	StatusSent Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

type Result struct {
	Status Status
	Err    error
}

func (r Result) Sent() bool { return r.Status == StatusSent }

type Notifier struct {
	transport Transport
	rdb       *redis.Client
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// New builds a Notifier. rdb may be nil, in which case SendOnce does not
// de-duplicate.
func New(transport Transport, rdb *redis.Client, logger *zap.Logger, m *metrics.Metrics) *Notifier {
	return &Notifier{
		transport: transport,
		rdb:       rdb,
		logger:    logger.Named("notify"),
		metrics:   m,
	}
}

func (n *Notifier) Send(ctx context.Context, chatID int64, msg Message) Result {
	err := n.transport.Send(ctx, chatID, msg)
	n.metrics.Notification(err)
	if err != nil {
		n.logger.Warn("could not notify user", zap.Int64("chat_id", chatID), zap.Error(err))
		return Result{Status: StatusFailed, Err: err}
	}
	return Result{Status: StatusSent}
}

// SendOnce sends msg unless key was already claimed within ttl. A failed send
// releases the key so a later attempt may retry.
func (n *Notifier) SendOnce(ctx context.Context, key string, ttl time.Duration, chatID int64, msg Message) Result {
	if n.rdb != nil {
		claimed, err := n.rdb.SetNX(ctx, key, "true", ttl).Result()
		if err != nil {
			n.logger.Warn("dedupe check failed, sending anyway", zap.String("key", key), zap.Error(err))
		} else if !claimed {
			return Result{Status: StatusSkipped}
		}
	}

	res := n.Send(ctx, chatID, msg)
	if res.Status == StatusFailed && n.rdb != nil {
		if err := n.rdb.Del(ctx, key).Err(); err != nil {
			n.logger.Warn("failed to release dedupe key", zap.String("key", key), zap.Error(err))
		}
	}
	return res
}

func QualifiedKey(userID int64) string {
	return fmt.Sprintf("notified:qualified:%d", userID)
}
