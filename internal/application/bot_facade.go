package application

import (
	"context"
	"errors"
	"strings"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/infra/logging"
	"vpn-subscription-bot/internal/infra/metrics"
	"vpn-subscription-bot/internal/usecase"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ Facade = (*BotFacade)(nil)

// BotFacade composes usecases into the bot's chat surface.
// The Telegram adapter only parses updates and forwards them here.
type BotFacade struct {
	Screens  *usecase.Screens
	Purchase usecase.PurchaseUseCase
	Receipts usecase.ReceiptUseCase
	Approval usecase.ApprovalUseCase
	Trial    usecase.TrialUseCase
	Admin    usecase.AdminUseCase

	tr  usecase.Translator
	log *zerolog.Logger
}

func NewBotFacade(
	screens *usecase.Screens,
	purchase usecase.PurchaseUseCase,
	receipts usecase.ReceiptUseCase,
	approval usecase.ApprovalUseCase,
	trial usecase.TrialUseCase,
	admin usecase.AdminUseCase,
	tr usecase.Translator,
	logger *zerolog.Logger,
) *BotFacade {
	l := logger.With().Str("component", "facade").Logger()
	return &BotFacade{
		Screens:  screens,
		Purchase: purchase,
		Receipts: receipts,
		Approval: approval,
		Trial:    trial,
		Admin:    admin,
		tr:       tr,
		log:      &l,
	}
}

func (b *BotFacade) HandleStart(ctx context.Context, user model.TelegramUser) error {
	metrics.IncUsersStarted()
	return b.Screens.Welcome(ctx, user)
}

// HandleText serves the reply keyboard entries.
func (b *BotFacade) HandleText(ctx context.Context, user model.TelegramUser, text string) error {
	switch b.Screens.MatchMenu(text) {
	case usecase.MenuInstruction:
		return b.Screens.Instruction(ctx, user.ChatID)
	case usecase.MenuStart:
		return b.Screens.Tariffs(ctx, user.ChatID)
	case usecase.MenuRules:
		return b.Screens.Rules(ctx, user.ChatID)
	}
	return b.Screens.Text(ctx, user.ChatID, b.tr.T("errors.unknown_command"), nil)
}

func (b *BotFacade) HandleReceipt(ctx context.Context, user model.TelegramUser, receipt model.Receipt) error {
	return b.Receipts.Submit(ctx, user, receipt)
}

func (b *BotFacade) HandleUsers(ctx context.Context, user model.TelegramUser) error {
	err := b.Admin.ListUsers(ctx, user.ID, user.ChatID)
	if errors.Is(err, domain.ErrUnauthorized) {
		return b.Screens.Text(ctx, user.ChatID, b.tr.T("errors.unauthorized"), nil)
	}
	return err
}

func (b *BotFacade) IsAdmin(userID int64) bool { return b.Admin.IsAdmin(userID) }

// HandleCallback routes an inline button press. The answer is shown to the
// user as a toast, or as an alert when Alert is set.
func (b *BotFacade) HandleCallback(ctx context.Context, user model.TelegramUser, data string, msg model.AdminMessage) (CallbackAnswer, error) {
	data = strings.TrimSpace(data)

	switch {
	case model.IsApprovalPayload(data):
		return b.handleApproval(ctx, user, data, msg)
	case strings.HasPrefix(data, model.TariffKeyPrefix):
		err := b.Purchase.SelectTariff(ctx, user, data)
		if errors.Is(err, domain.ErrUnknownTariff) {
			return CallbackAnswer{}, nil
		}
		return CallbackAnswer{}, err
	}

	switch data {
	case model.CallbackBackMain:
		return CallbackAnswer{}, b.Screens.Welcome(ctx, user)
	case model.CallbackBackTariffs, model.CallbackPaymentCancel:
		return CallbackAnswer{}, b.Screens.Tariffs(ctx, user.ChatID)
	case model.CallbackPaymentSuccess:
		return CallbackAnswer{}, b.Purchase.ConfirmPayment(ctx, user.ChatID)
	}
	return CallbackAnswer{}, domain.ErrInvalidCallback
}

func (b *BotFacade) handleApproval(ctx context.Context, user model.TelegramUser, data string, msg model.AdminMessage) (CallbackAnswer, error) {
	action, err := b.Approval.HandleCallback(ctx, user.ID, data, msg)
	switch {
	case err == nil && action == model.ActionApprove:
		return CallbackAnswer{Text: b.tr.T("callback.approved")}, nil
	case err == nil:
		return CallbackAnswer{Text: b.tr.T("callback.rejected")}, nil
	case errors.Is(err, domain.ErrClaimHeld):
		return CallbackAnswer{Text: b.tr.T("callback.already_processed"), Alert: true}, nil
	case errors.Is(err, domain.ErrOperationFailed):
		// upstream failure, answered below
	case errors.Is(err, domain.ErrUnauthorized):
		return CallbackAnswer{Text: b.tr.T("errors.unauthorized"), Alert: true}, nil
	}
	logging.With(ctx, b.log).Error().Err(err).Str("action", string(action)).Msg("approval failed")
	return CallbackAnswer{Text: b.ErrorText(err), Alert: true}, nil
}

// ErrorText maps a handler error to the generic notice shown to users.
func (b *BotFacade) ErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrOperationFailed):
		return b.tr.T("errors.api_error")
	case errors.Is(err, domain.ErrUnauthorized):
		return b.tr.T("errors.unauthorized")
	case errors.Is(err, domain.ErrRateLimited):
		return b.tr.T("errors.rate_limited")
	}
	return b.tr.T("errors.general")
}
