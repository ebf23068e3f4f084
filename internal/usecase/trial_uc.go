package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/domain/ports/repository"
	"vpn-subscription-bot/internal/infra/logging"
	"vpn-subscription-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

const trialClaimTTL = 2 * time.Minute

// Compile-time check
var _ TrialUseCase = (*trialUC)(nil)

// TrialUseCase activates the free trial at most once per Telegram user.
type TrialUseCase interface {
	Activate(ctx context.Context, user model.TelegramUser) error
}

type trialUC struct {
	bot       adapter.TelegramBotAdapter
	ledger    repository.TrialLedger
	locker    repository.Locker
	provision ProvisioningUseCase
	screens   *Screens
	tr        Translator
	adminID   int64
	now       func() time.Time
	log       *zerolog.Logger
}

func NewTrialUseCase(
	bot adapter.TelegramBotAdapter,
	ledger repository.TrialLedger,
	locker repository.Locker,
	provision ProvisioningUseCase,
	screens *Screens,
	tr Translator,
	adminID int64,
	logger *zerolog.Logger,
) *trialUC {
	return &trialUC{
		bot:       bot,
		ledger:    ledger,
		locker:    locker,
		provision: provision,
		screens:   screens,
		tr:        tr,
		adminID:   adminID,
		now:       time.Now,
		log:       logger,
	}
}

func (u *trialUC) Activate(ctx context.Context, user model.TelegramUser) error {
	defer logging.TraceDuration(u.log, "TrialUC.Activate")()
	log := logging.With(ctx, u.log)

	used, err := u.ledger.HasUsedTrial(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("check trial ledger: %w", err)
	}
	if used {
		return u.alreadyUsed(ctx, user)
	}

	claimKey := fmt.Sprintf("trial:%d", user.ID)
	token, err := u.locker.TryLock(ctx, claimKey, trialClaimTTL)
	if err != nil {
		if errors.Is(err, domain.ErrClaimHeld) {
			metrics.IncTrial("in_progress")
			return u.screens.Text(ctx, user.ChatID, u.tr.T("trial.in_progress"), nil)
		}
		return err
	}
	defer func() {
		if err := u.locker.Unlock(context.WithoutCancel(ctx), claimKey, token); err != nil {
			log.Warn().Err(err).Str("claim", claimKey).Msg("release trial claim")
		}
	}()

	// A concurrent activation may have finished before the claim was taken.
	if used, err = u.ledger.HasUsedTrial(ctx, user.ID); err != nil {
		return fmt.Errorf("check trial ledger: %w", err)
	}
	if used {
		return u.alreadyUsed(ctx, user)
	}

	trial, _ := model.TariffByKey(model.TariffKeyTrial)
	acc, err := u.provision.Provision(ctx, user.ID, trial)
	if err != nil {
		metrics.IncTrial("failed")
		log.Error().Err(err).Msg("trial provisioning failed")
		if serr := u.screens.Text(ctx, user.ChatID, u.tr.T("trial.error"), nil); serr != nil {
			log.Error().Err(serr).Msg("send trial error notice")
		}
		u.notifyAdmin(ctx, u.tr.T("admin.trial_error", user.Mention(), user.ID, err.Error()))
		return fmt.Errorf("%w: %w", domain.ErrOperationFailed, err)
	}

	entry := model.NewTrialLedgerEntry(user.ID, user.DisplayName(), u.now())
	if err := u.ledger.MarkTrialUsed(ctx, user.ID, entry); err != nil {
		// The account exists; the user still gets the link.
		log.Error().Err(err).Msg("mark trial used")
	}

	err = u.bot.SendMessage(ctx, adapter.SendMessageParams{
		ChatID:                user.ChatID,
		Text:                  u.screens.WithLink(u.tr.T("trial.activated"), acc.SubscriptionURL),
		ParseMode:             adapter.ParseModeHTML,
		DisableWebPagePreview: true,
		ReplyMarkup:           u.screens.ReturnKeyboard(),
	})
	if err != nil {
		log.Error().Err(err).Msg("deliver trial link")
	}
	u.notifyAdmin(ctx, u.tr.T("admin.trial_activated", user.Mention(), user.ID))
	metrics.IncTrial("activated")
	log.Info().Str("uuid", acc.UUID).Msg("trial activated")
	return nil
}

func (u *trialUC) alreadyUsed(ctx context.Context, user model.TelegramUser) error {
	metrics.IncTrial("already_used")
	return u.screens.Text(ctx, user.ChatID, u.tr.T("trial.already_used"), u.screens.TariffsKeyboard())
}

func (u *trialUC) notifyAdmin(ctx context.Context, text string) {
	if err := u.bot.SendMessage(ctx, adapter.SendMessageParams{ChatID: u.adminID, Text: text}); err != nil {
		logging.With(ctx, u.log).Error().Err(err).Msg("notify admin")
	}
}
