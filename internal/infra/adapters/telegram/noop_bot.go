package telegram

import (
	"context"

	"github.com/rs/zerolog"

	"vpn-subscription-bot/internal/domain/ports/adapter"
)

var _ adapter.TelegramBotAdapter = (*NoopBotAdapter)(nil)

// NoopBotAdapter logs outgoing messages instead of sending them. It backs
// dry runs where no bot token is configured.
type NoopBotAdapter struct {
	log *zerolog.Logger
}

func NewNoopBotAdapter(logger *zerolog.Logger) *NoopBotAdapter {
	l := logger.With().Str("component", "noop_telegram").Logger()
	return &NoopBotAdapter{log: &l}
}

func (b *NoopBotAdapter) SendMessage(ctx context.Context, p adapter.SendMessageParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("chat_id", p.ChatID).Str("text", p.Text).Bool("markup", p.ReplyMarkup != nil).Msg("send message")
	return nil
}

func (b *NoopBotAdapter) SendPhoto(ctx context.Context, p adapter.SendPhotoParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("chat_id", p.ChatID).Str("file_id", p.FileID).Str("caption", p.Caption).Msg("send photo")
	return nil
}

func (b *NoopBotAdapter) SendDocument(ctx context.Context, p adapter.SendDocumentParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("chat_id", p.ChatID).Str("file_id", p.FileID).Str("caption", p.Caption).Msg("send document")
	return nil
}

func (b *NoopBotAdapter) EditCaption(ctx context.Context, p adapter.EditCaptionParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.log.Info().Int64("chat_id", p.ChatID).Int("message_id", p.MessageID).Str("caption", p.Caption).Msg("edit caption")
	return nil
}
