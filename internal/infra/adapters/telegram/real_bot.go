package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vpn-subscription-bot/internal/application"
	"vpn-subscription-bot/internal/config"
	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/domain/ports/repository"
	"vpn-subscription-bot/internal/infra/logging"
	"vpn-subscription-bot/internal/infra/metrics"
	red "vpn-subscription-bot/internal/infra/redis"
	"vpn-subscription-bot/internal/infra/worker"
	"vpn-subscription-bot/internal/usecase"
)

var _ adapter.TelegramBotAdapter = (*RealTelegramBotAdapter)(nil)

const (
	commandLimit  = 20
	callbackLimit = 30
	limitWindow   = time.Minute
)

// botAPI is the subset of tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// RealTelegramBotAdapter sends messages through the Bot API and feeds
// polled updates to the facade on a worker pool.
type RealTelegramBotAdapter struct {
	bot         botAPI
	facade      application.Facade
	rateLimiter repository.RateLimiter
	media       repository.MediaStore
	tr          usecase.Translator
	pool        *worker.Pool

	adminID       int64
	imagesDir     string
	cancelPolling context.CancelFunc
	log           *zerolog.Logger
}

func NewRealTelegramBotAdapter(
	cfg *config.BotConfig,
	media *config.MediaConfig,
	store repository.MediaStore,
	rateLimiter repository.RateLimiter,
	tr usecase.Translator,
	logger *zerolog.Logger,
) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	l := logger.With().Str("component", "telegram").Logger()
	l.Info().Str("bot", bot.Self.UserName).Msg("authorized on telegram")
	return newAdapter(bot, cfg, media, store, rateLimiter, tr, &l), nil
}

func newAdapter(bot botAPI, cfg *config.BotConfig, media *config.MediaConfig, store repository.MediaStore, rateLimiter repository.RateLimiter, tr usecase.Translator, log *zerolog.Logger) *RealTelegramBotAdapter {
	imagesDir := "images"
	if media != nil && media.ImagesDir != "" {
		imagesDir = media.ImagesDir
	}
	return &RealTelegramBotAdapter{
		bot:         bot,
		rateLimiter: rateLimiter,
		media:       store,
		tr:          tr,
		pool:        worker.NewPool(cfg.Workers, log),
		adminID:     cfg.AdminID,
		imagesDir:   imagesDir,
		log:         log,
	}
}

// SetFacade attaches the update handler. The facade's use cases send through
// this adapter, so it is wired after construction.
func (r *RealTelegramBotAdapter) SetFacade(f application.Facade) { r.facade = f }

// StartPolling runs until ctx is canceled.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	if r.facade == nil {
		return errors.New("bot facade is not set")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel
	r.pool.Start(ctx)
	r.log.Info().Msg("polling started")

	for {
		select {
		case <-ctx.Done():
			r.bot.StopReceivingUpdates()
			r.pool.Stop()
			r.log.Info().Msg("polling stopped")
			return nil
		case up, ok := <-updates:
			if !ok {
				r.pool.Stop()
				return errors.New("telegram updates channel closed")
			}
			if err := r.pool.Submit(ctx, func(ctx context.Context) error { return r.handleUpdate(ctx, up) }); err != nil {
				r.log.Warn().Err(err).Int("update_id", up.UpdateID).Msg("update dropped")
			}
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) SendMessage(ctx context.Context, params adapter.SendMessageParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(params.ChatID, params.Text)
	msg.ParseMode = params.ParseMode
	msg.DisableWebPagePreview = params.DisableWebPagePreview
	if markup := buildMarkup(params.ReplyMarkup); markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := r.bot.Send(msg)
	return err
}

func (r *RealTelegramBotAdapter) SendPhoto(ctx context.Context, params adapter.SendPhotoParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	photo := tgbotapi.NewPhoto(params.ChatID, tgbotapi.FileID(params.FileID))
	photo.Caption = params.Caption
	photo.ParseMode = params.ParseMode
	if markup := buildMarkup(params.ReplyMarkup); markup != nil {
		photo.ReplyMarkup = markup
	}
	_, err := r.bot.Send(photo)
	return err
}

func (r *RealTelegramBotAdapter) SendDocument(ctx context.Context, params adapter.SendDocumentParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc := tgbotapi.NewDocument(params.ChatID, tgbotapi.FileID(params.FileID))
	doc.Caption = params.Caption
	if markup := buildMarkup(params.ReplyMarkup); markup != nil {
		doc.ReplyMarkup = markup
	}
	_, err := r.bot.Send(doc)
	return err
}

func (r *RealTelegramBotAdapter) EditCaption(ctx context.Context, params adapter.EditCaptionParams) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageCaption(params.ChatID, params.MessageID, params.Caption)
	if params.ReplyMarkup != nil && params.ReplyMarkup.IsInline {
		kb := inlineKeyboard(params.ReplyMarkup.Buttons)
		edit.ReplyMarkup = &kb
	}
	_, err := r.bot.Request(edit)
	return err
}

// buildMarkup converts the port markup; an inline markup without buttons
// renders as an empty keyboard.
func buildMarkup(m *adapter.ReplyMarkup) interface{} {
	if m == nil {
		return nil
	}
	if m.IsInline {
		return inlineKeyboard(m.Buttons)
	}
	rows := make([][]tgbotapi.KeyboardButton, 0, len(m.Buttons))
	for _, row := range m.Buttons {
		kr := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, btn := range row {
			kr = append(kr, tgbotapi.NewKeyboardButton(btn.Text))
		}
		rows = append(rows, kr)
	}
	return tgbotapi.ReplyKeyboardMarkup{
		Keyboard:              rows,
		ResizeKeyboard:        true,
		InputFieldPlaceholder: m.Placeholder,
	}
}

func inlineKeyboard(buttons [][]adapter.Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		if len(row) == 0 {
			continue
		}
		kr := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			label := strings.TrimSpace(btn.Text)
			if label == "" {
				label = "•"
			}
			switch {
			case btn.URL != "":
				kr = append(kr, tgbotapi.NewInlineKeyboardButtonURL(label, btn.URL))
			case btn.Data != "":
				kr = append(kr, tgbotapi.NewInlineKeyboardButtonData(label, btn.Data))
			default:
				kr = append(kr, tgbotapi.NewInlineKeyboardButtonData(label, label))
			}
		}
		rows = append(rows, kr)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// handleUpdate logs the update, applies rate limits and dispatches it.
func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	from, chatID, kind, content := describe(update)
	if from == nil {
		return nil
	}
	ctx = logging.WithTraceID(ctx, uuid.NewString())
	ctx = logging.WithTgID(ctx, from.ID)
	ctx = logging.WithChatID(ctx, chatID)
	log := logging.With(ctx, r.log)

	start := time.Now()
	log.Info().Str("type", kind).Str("username", from.UserName).Str("content", content).Msg("update received")
	defer func() {
		log.Debug().Str("type", kind).Dur("duration", time.Since(start)).Msg("update handled")
	}()

	user := model.TelegramUser{ID: from.ID, Username: from.UserName, ChatID: chatID}

	if !r.allow(ctx, user, kind, content) {
		metrics.IncRateLimitTriggered()
		if update.CallbackQuery != nil {
			_, _ = r.bot.Request(tgbotapi.NewCallbackWithAlert(update.CallbackQuery.ID, r.facade.ErrorText(domain.ErrRateLimited)))
			return nil
		}
		return r.replyError(ctx, chatID, domain.ErrRateLimited)
	}

	var err error
	switch {
	case update.CallbackQuery != nil:
		return r.handleQuery(ctx, user, update.CallbackQuery)
	case update.Message.IsCommand():
		err = r.handleCommand(ctx, user, update.Message)
	case len(update.Message.Photo) > 0:
		largest := update.Message.Photo[len(update.Message.Photo)-1]
		err = r.facade.HandleReceipt(ctx, user, model.Receipt{Kind: model.ReceiptPhoto, FileID: largest.FileID})
	case update.Message.Document != nil:
		err = r.facade.HandleReceipt(ctx, user, model.Receipt{Kind: model.ReceiptDocument, FileID: update.Message.Document.FileID})
	case update.Message.Text != "":
		err = r.facade.HandleText(ctx, user, update.Message.Text)
	}
	if err != nil {
		log.Error().Err(err).Str("type", kind).Msg("update failed")
		return r.replyError(ctx, chatID, err)
	}
	return nil
}

// allow applies the per-user limit; the admin is never limited.
func (r *RealTelegramBotAdapter) allow(ctx context.Context, user model.TelegramUser, kind, content string) bool {
	if r.rateLimiter == nil || user.ID == r.adminID {
		return true
	}
	limit, command := commandLimit, kind
	switch kind {
	case "command":
		command = strings.Fields(content)[0]
	case "callback":
		limit, command = callbackLimit, "cb"
	}
	allowed, err := r.rateLimiter.Allow(ctx, red.UserCommandKey(user.ID, command), limit, limitWindow)
	if err != nil {
		logging.With(ctx, r.log).Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	return allowed
}

// replyError is the global error handler: users only see a generic notice.
func (r *RealTelegramBotAdapter) replyError(ctx context.Context, chatID int64, err error) error {
	sendErr := r.SendMessage(context.WithoutCancel(ctx), adapter.SendMessageParams{
		ChatID: chatID,
		Text:   r.facade.ErrorText(err),
	})
	if sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return nil
}

// describe extracts the sender, chat and a loggable summary of an update.
func describe(update tgbotapi.Update) (from *tgbotapi.User, chatID int64, kind, content string) {
	if q := update.CallbackQuery; q != nil {
		if q.From != nil {
			chatID = q.From.ID
		}
		if q.Message != nil && q.Message.Chat != nil {
			chatID = q.Message.Chat.ID
		}
		return q.From, chatID, "callback", q.Data
	}
	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return nil, 0, "", ""
	}
	switch {
	case m.IsCommand():
		return m.From, m.Chat.ID, "command", m.Text
	case len(m.Photo) > 0:
		return m.From, m.Chat.ID, "photo", "[photo]"
	case m.Document != nil:
		return m.From, m.Chat.ID, "document", "[document] " + m.Document.FileName
	}
	return m.From, m.Chat.ID, "message", m.Text
}
