package services

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/aikhq/aik-backend/internal/clients/telegram"
	"github.com/aikhq/aik-backend/internal/pkg/apperr"
	"github.com/aikhq/aik-backend/internal/platform/logger"
)

// Notifier delivers human-readable notifications about pipeline outcomes.
type Notifier interface {
	SendNotification(ctx context.Context, message string) error
	SendErrorNotification(ctx context.Context, cause error, contextLine string) error
}

type telegramNotifier struct {
	log *logger.Logger
	tg  telegram.Client
}

func NewTelegramNotifier(log *logger.Logger, tg telegram.Client) Notifier {
	return &telegramNotifier{
		log: log.With("service", "TelegramNotifier"),
		tg:  tg,
	}
}

func (n *telegramNotifier) SendNotification(ctx context.Context, message string) error {
	if n == nil || n.tg == nil {
		return nil
	}
	return n.tg.SendMessage(ctx, message)
}

func (n *telegramNotifier) SendErrorNotification(ctx context.Context, cause error, contextLine string) error {
	if n == nil || n.tg == nil {
		return nil
	}
	return n.tg.SendMessage(ctx, formatErrorMessage(cause, contextLine))
}

func formatErrorMessage(cause error, contextLine string) string {
	errType := "error"
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
		if ae, ok := apperr.As(cause); ok {
			errType = string(ae.Kind)
		}
	}
	return fmt.Sprintf("<b>Pipeline processing error</b>\n\n%s\n%s\n%s\n%s",
		time.Now().Format("2006-01-02 15:04:05"),
		html.EscapeString(contextLine),
		html.EscapeString(errType),
		html.EscapeString(errMsg),
	)
}

// NopNotifier discards everything; used when Telegram is not configured.
type NopNotifier struct{}

func (NopNotifier) SendNotification(ctx context.Context, message string) error { return nil }
func (NopNotifier) SendErrorNotification(ctx context.Context, cause error, contextLine string) error {
	return nil
}
