package application

import (
	"context"

	"vpn-subscription-bot/internal/domain/model"
)

// CallbackAnswer is the reply to an inline button press.
type CallbackAnswer struct {
	Text  string
	Alert bool
}

// Facade is the surface the Telegram adapter drives.
type Facade interface {
	HandleStart(ctx context.Context, user model.TelegramUser) error
	HandleText(ctx context.Context, user model.TelegramUser, text string) error
	HandleReceipt(ctx context.Context, user model.TelegramUser, receipt model.Receipt) error
	HandleUsers(ctx context.Context, user model.TelegramUser) error
	HandleCallback(ctx context.Context, user model.TelegramUser, data string, msg model.AdminMessage) (CallbackAnswer, error)
	IsAdmin(userID int64) bool
	ErrorText(err error) string
}
