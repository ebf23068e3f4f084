package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/domain/ports/repository"
	"vpn-subscription-bot/internal/infra/logging"
	"vpn-subscription-bot/internal/infra/metrics"
)

type commandHandler func(ctx context.Context, user model.TelegramUser, msg *tgbotapi.Message) error

func (r *RealTelegramBotAdapter) routes() map[string]commandHandler {
	return map[string]commandHandler{
		"start": func(ctx context.Context, user model.TelegramUser, _ *tgbotapi.Message) error {
			return r.facade.HandleStart(ctx, user)
		},
		"users": r.adminOnly("users", func(ctx context.Context, user model.TelegramUser, _ *tgbotapi.Message) error {
			return r.facade.HandleUsers(ctx, user)
		}),
		"upload_photos": r.adminOnly("upload_photos", r.handleUploadPhotos),
	}
}

func (r *RealTelegramBotAdapter) handleCommand(ctx context.Context, user model.TelegramUser, msg *tgbotapi.Message) error {
	cmd := msg.Command()
	h, ok := r.routes()[cmd]
	if !ok {
		metrics.IncTelegramCommand("unknown")
		return r.facade.HandleText(ctx, user, msg.Text)
	}
	metrics.IncTelegramCommand(cmd)
	return h(ctx, user, msg)
}

// adminOnly rejects non-admin callers with the unauthorized notice.
func (r *RealTelegramBotAdapter) adminOnly(name string, next commandHandler) commandHandler {
	return func(ctx context.Context, user model.TelegramUser, msg *tgbotapi.Message) error {
		if !r.facade.IsAdmin(user.ID) {
			metrics.IncAdminCommand(name, "unauthorized")
			logging.With(ctx, r.log).Warn().Str("command", name).Msg("admin command denied")
			return r.SendMessage(ctx, adapter.SendMessageParams{
				ChatID: user.ChatID,
				Text:   r.facade.ErrorText(domain.ErrUnauthorized),
			})
		}
		metrics.IncAdminCommand(name, "authorized")
		return next(ctx, user, msg)
	}
}

// handleUploadPhotos re-uploads every bundled image and reports the count.
func (r *RealTelegramBotAdapter) handleUploadPhotos(ctx context.Context, user model.TelegramUser, _ *tgbotapi.Message) error {
	uploaded, err := r.UploadMedia(ctx, repository.RequiredMediaKeys)
	if err != nil {
		return r.SendMessage(ctx, adapter.SendMessageParams{
			ChatID: user.ChatID,
			Text:   r.tr.T("admin.media_failed", err.Error()),
		})
	}
	return r.SendMessage(ctx, adapter.SendMessageParams{
		ChatID: user.ChatID,
		Text:   r.tr.T("admin.media_uploaded", uploaded, len(repository.RequiredMediaKeys)),
	})
}
