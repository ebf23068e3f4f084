package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vpn-subscription-bot/internal/application"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/infra/logging"
)

// handleQuery passes the button press to the facade and always answers the
// query so the client stops its spinner.
func (r *RealTelegramBotAdapter) handleQuery(ctx context.Context, user model.TelegramUser, query *tgbotapi.CallbackQuery) error {
	log := logging.With(ctx, r.log)

	ans, err := r.facade.HandleCallback(ctx, user, query.Data, queryMessage(query))
	if err != nil {
		log.Error().Err(err).Str("data", query.Data).Msg("callback failed")
		ans = application.CallbackAnswer{Text: r.facade.ErrorText(err), Alert: true}
	}

	cb := tgbotapi.NewCallback(query.ID, ans.Text)
	if ans.Alert {
		cb = tgbotapi.NewCallbackWithAlert(query.ID, ans.Text)
	}
	if _, aerr := r.bot.Request(cb); aerr != nil {
		log.Warn().Err(aerr).Msg("answer callback")
	}
	return nil
}

// queryMessage describes the message the pressed button belongs to.
func queryMessage(query *tgbotapi.CallbackQuery) model.AdminMessage {
	m := query.Message
	if m == nil {
		return model.AdminMessage{}
	}
	msg := model.AdminMessage{
		MessageID: m.MessageID,
		Caption:   m.Caption,
		HasMedia:  len(m.Photo) > 0 || m.Document != nil,
	}
	if m.Chat != nil {
		msg.ChatID = m.Chat.ID
	}
	return msg
}
