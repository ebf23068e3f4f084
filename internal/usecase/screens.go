// File: internal/usecase/screens.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

type ScreenConfig struct {
	ServiceName string
	SupportURL  string
	NewsURL     string
	Requisites  string
}

// Screens renders the bot's menus. A screen with a media key is sent as a
// photo when the file id is known and as plain text otherwise.
type Screens struct {
	bot   adapter.TelegramBotAdapter
	media repository.MediaStore
	tr    Translator
	cfg   ScreenConfig
	log   *zerolog.Logger
}

func NewScreens(bot adapter.TelegramBotAdapter, media repository.MediaStore, tr Translator, cfg ScreenConfig, logger *zerolog.Logger) *Screens {
	l := logger.With().Str("component", "screens").Logger()
	return &Screens{bot: bot, media: media, tr: tr, cfg: cfg, log: &l}
}

// MenuAction names a reply keyboard entry.
type MenuAction int

const (
	MenuNone MenuAction = iota
	MenuInstruction
	MenuStart
	MenuRules
)

// MatchMenu maps reply keyboard text to its action.
func (s *Screens) MatchMenu(text string) MenuAction {
	switch strings.TrimSpace(text) {
	case s.tr.T("buttons.instruction"):
		return MenuInstruction
	case s.tr.T("buttons.start_work", s.cfg.ServiceName):
		return MenuStart
	case s.tr.T("buttons.rules"):
		return MenuRules
	}
	return MenuNone
}

func (s *Screens) MainKeyboard() *adapter.ReplyMarkup {
	return &adapter.ReplyMarkup{
		Buttons: [][]adapter.Button{
			{{Text: s.tr.T("buttons.instruction")}},
			{{Text: s.tr.T("buttons.start_work", s.cfg.ServiceName)}},
			{{Text: s.tr.T("buttons.rules")}},
		},
		Placeholder: s.tr.T("menu.placeholder"),
	}
}

func (s *Screens) TariffsKeyboard() *adapter.ReplyMarkup {
	byKey := func(key string) adapter.Button {
		t, _ := model.TariffByKey(key)
		return adapter.Button{Text: t.Name, Data: t.Key}
	}
	return &adapter.ReplyMarkup{
		IsInline: true,
		Buttons: [][]adapter.Button{
			{byKey(model.TariffKeyYear), byKey(model.TariffKeyHalfYear), byKey(model.TariffKeyQuarter)},
			{byKey(model.TariffKeyMonth)},
			{byKey(model.TariffKeyTrial)},
			{{Text: s.tr.T("buttons.back_main"), Data: model.CallbackBackMain}},
		},
	}
}

func (s *Screens) PaymentKeyboard() *adapter.ReplyMarkup {
	return &adapter.ReplyMarkup{
		IsInline: true,
		Buttons: [][]adapter.Button{{
			{Text: s.tr.T("buttons.pay_ok"), Data: model.CallbackPaymentSuccess},
			{Text: s.tr.T("buttons.to_tariffs"), Data: model.CallbackPaymentCancel},
		}},
	}
}

func (s *Screens) ReturnKeyboard() *adapter.ReplyMarkup {
	return &adapter.ReplyMarkup{
		IsInline: true,
		Buttons:  [][]adapter.Button{{{Text: s.tr.T("buttons.back_tariffs"), Data: model.CallbackBackTariffs}}},
	}
}

// InstructionKeyboard links support and news; nil when neither is configured.
func (s *Screens) InstructionKeyboard() *adapter.ReplyMarkup {
	var row []adapter.Button
	if s.cfg.SupportURL != "" {
		row = append(row, adapter.Button{Text: s.tr.T("buttons.support"), URL: s.cfg.SupportURL})
	}
	if s.cfg.NewsURL != "" {
		row = append(row, adapter.Button{Text: s.tr.T("buttons.news"), URL: s.cfg.NewsURL})
	}
	if len(row) == 0 {
		return nil
	}
	return &adapter.ReplyMarkup{IsInline: true, Buttons: [][]adapter.Button{row}}
}

func (s *Screens) ApprovalKeyboard(approveData, rejectData string) *adapter.ReplyMarkup {
	return &adapter.ReplyMarkup{
		IsInline: true,
		Buttons: [][]adapter.Button{{
			{Text: s.tr.T("buttons.approve"), Data: approveData},
			{Text: s.tr.T("buttons.reject"), Data: rejectData},
		}},
	}
}

// StripButtons removes an inline keyboard when used in an edit.
func StripButtons() *adapter.ReplyMarkup {
	return &adapter.ReplyMarkup{IsInline: true}
}

func (s *Screens) Welcome(ctx context.Context, user model.TelegramUser) error {
	name := user.Username
	if name == "" {
		name = fmt.Sprintf("%d", user.ID)
	}
	return s.bot.SendMessage(ctx, adapter.SendMessageParams{
		ChatID:      user.ChatID,
		Text:        s.tr.T("welcome", name, s.cfg.ServiceName),
		ParseMode:   adapter.ParseModeHTML,
		ReplyMarkup: s.MainKeyboard(),
	})
}

func (s *Screens) Instruction(ctx context.Context, chatID int64) error {
	return s.Send(ctx, chatID, repository.MediaInstruction, s.tr.T("instruction"), s.InstructionKeyboard())
}

func (s *Screens) Rules(ctx context.Context, chatID int64) error {
	return s.Send(ctx, chatID, repository.MediaRules, s.tr.T("rules"), nil)
}

func (s *Screens) Tariffs(ctx context.Context, chatID int64) error {
	return s.Send(ctx, chatID, repository.MediaTariffs, s.TariffsText(), s.TariffsKeyboard())
}

// TariffsText lists the paid tariffs with their prices.
func (s *Screens) TariffsText() string {
	var lines []string
	for _, t := range model.Tariffs() {
		if t.IsTrial() {
			continue
		}
		if t.Discount != "" {
			lines = append(lines, s.tr.T("tariffs.line_discount", t.Name, t.Price, t.Discount))
			continue
		}
		lines = append(lines, s.tr.T("tariffs.line", t.Name, t.Price))
	}
	return s.tr.T("tariffs.selection", strings.Join(lines, "\n"))
}

// WithLink appends the subscription link line; an empty url leaves text as is.
func (s *Screens) WithLink(text, url string) string {
	if url == "" {
		return text
	}
	return text + s.tr.T("payment.link", url)
}

// Send shows a screen as a photo with caption, or as text without the photo.
func (s *Screens) Send(ctx context.Context, chatID int64, mediaKey, text string, markup *adapter.ReplyMarkup) error {
	if mediaKey != "" && s.media != nil {
		if fileID, ok := s.media.Get(mediaKey); ok {
			return s.bot.SendPhoto(ctx, adapter.SendPhotoParams{
				ChatID:      chatID,
				FileID:      fileID,
				Caption:     text,
				ParseMode:   adapter.ParseModeHTML,
				ReplyMarkup: markup,
			})
		}
		s.log.Debug().Str("media", mediaKey).Msg("media id missing, sending text")
	}
	return s.bot.SendMessage(ctx, adapter.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   adapter.ParseModeHTML,
		ReplyMarkup: markup,
	})
}

// Text sends an HTML message without a photo.
func (s *Screens) Text(ctx context.Context, chatID int64, text string, markup *adapter.ReplyMarkup) error {
	return s.Send(ctx, chatID, "", text, markup)
}
