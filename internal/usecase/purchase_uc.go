package usecase

import (
	"context"
	"errors"
	"time"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/repository"
	"vpn-subscription-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ PurchaseUseCase = (*purchaseUC)(nil)

// PurchaseUseCase drives a user from the tariff menu to the receipt prompt.
type PurchaseUseCase interface {
	SelectTariff(ctx context.Context, user model.TelegramUser, key string) error
	ConfirmPayment(ctx context.Context, chatID int64) error
	// SelectedTariff returns the tariff name remembered for the chat.
	SelectedTariff(ctx context.Context, chatID int64) (string, bool)
}

type purchaseUC struct {
	sessions repository.SessionRepository
	trial    TrialUseCase
	screens  *Screens
	tr       Translator
	log      *zerolog.Logger
}

func NewPurchaseUseCase(sessions repository.SessionRepository, trial TrialUseCase, screens *Screens, tr Translator, logger *zerolog.Logger) *purchaseUC {
	return &purchaseUC{sessions: sessions, trial: trial, screens: screens, tr: tr, log: logger}
}

func (u *purchaseUC) SelectTariff(ctx context.Context, user model.TelegramUser, key string) error {
	defer logging.TraceDuration(u.log, "PurchaseUC.SelectTariff")()

	tariff, ok := model.TariffByKey(key)
	if !ok {
		if err := u.screens.Text(ctx, user.ChatID, u.tr.T("tariffs.unknown"), u.screens.TariffsKeyboard()); err != nil {
			return err
		}
		return domain.ErrUnknownTariff
	}
	if tariff.IsTrial() {
		return u.trial.Activate(ctx, user)
	}

	err := u.sessions.SetSession(ctx, &model.Session{
		ChatID:             user.ChatID,
		SelectedTariffName: tariff.Name,
		UpdatedAt:          time.Now(),
	})
	if err != nil {
		return err
	}
	logging.With(ctx, u.log).Info().Str("tariff", tariff.Key).Msg("tariff selected")

	text := u.tr.T("tariffs.payment", tariff.Price, u.screens.cfg.Requisites)
	return u.screens.Text(ctx, user.ChatID, text, u.screens.PaymentKeyboard())
}

func (u *purchaseUC) ConfirmPayment(ctx context.Context, chatID int64) error {
	return u.screens.Text(ctx, chatID, u.tr.T("payment.send_receipt"), nil)
}

func (u *purchaseUC) SelectedTariff(ctx context.Context, chatID int64) (string, bool) {
	s, err := u.sessions.GetSession(ctx, chatID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logging.With(ctx, u.log).Warn().Err(err).Msg("session lookup failed")
		}
		return "", false
	}
	if s.SelectedTariffName == "" {
		return "", false
	}
	return s.SelectedTariffName, true
}
