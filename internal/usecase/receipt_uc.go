package usecase

import (
	"context"
	"fmt"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/domain/ports/repository"
	"vpn-subscription-bot/internal/infra/logging"
	"vpn-subscription-bot/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ReceiptUseCase = (*receiptUC)(nil)

// ReceiptUseCase forwards a payment receipt to the admin for review.
type ReceiptUseCase interface {
	Submit(ctx context.Context, user model.TelegramUser, receipt model.Receipt) error
}

type receiptUC struct {
	bot      adapter.TelegramBotAdapter
	purchase PurchaseUseCase
	screens  *Screens
	tr       Translator
	adminID  int64
	log      *zerolog.Logger
}

func NewReceiptUseCase(bot adapter.TelegramBotAdapter, purchase PurchaseUseCase, screens *Screens, tr Translator, adminID int64, logger *zerolog.Logger) *receiptUC {
	return &receiptUC{bot: bot, purchase: purchase, screens: screens, tr: tr, adminID: adminID, log: logger}
}

func (u *receiptUC) Submit(ctx context.Context, user model.TelegramUser, receipt model.Receipt) error {
	defer logging.TraceDuration(u.log, "ReceiptUC.Submit")()

	if receipt.FileID == "" {
		return fmt.Errorf("%w: empty receipt file id", domain.ErrInvalidArgument)
	}
	tariffName, ok := u.purchase.SelectedTariff(ctx, user.ChatID)
	if !ok {
		tariffName = u.tr.T("payment.no_tariff")
	}

	if err := u.screens.Send(ctx, user.ChatID, repository.MediaWaiting, u.tr.T("payment.waiting"), nil); err != nil {
		return err
	}

	approve, reject, err := approvalPayloads(user.ID, tariffName)
	if err != nil {
		return err
	}
	caption := u.tr.T("admin.new_payment", user.Mention(), user.ID, tariffName)
	markup := u.screens.ApprovalKeyboard(approve, reject)

	switch receipt.Kind {
	case model.ReceiptDocument:
		err = u.bot.SendDocument(ctx, adapter.SendDocumentParams{ChatID: u.adminID, FileID: receipt.FileID, Caption: caption, ReplyMarkup: markup})
	default:
		err = u.bot.SendPhoto(ctx, adapter.SendPhotoParams{ChatID: u.adminID, FileID: receipt.FileID, Caption: caption, ReplyMarkup: markup})
	}
	if err != nil {
		return fmt.Errorf("forward receipt: %w", err)
	}
	metrics.IncReceipt(string(receipt.Kind))
	logging.With(ctx, u.log).Info().Str("tariff", tariffName).Str("kind", string(receipt.Kind)).Msg("receipt forwarded to admin")
	return nil
}

// approvalPayloads encodes both buttons. A tariff name too long for the
// payload is replaced by the default tariff.
func approvalPayloads(userID int64, tariffName string) (approve, reject string, err error) {
	encode := func(action model.ApprovalAction) (string, error) {
		cmd, err := model.NewApprovalCommand(action, userID, tariffName)
		if err != nil {
			return "", err
		}
		data, err := cmd.Encode()
		if err == nil {
			return data, nil
		}
		cmd.TariffName = model.DefaultTariff().Name
		return cmd.Encode()
	}
	if approve, err = encode(model.ActionApprove); err != nil {
		return "", "", err
	}
	if reject, err = encode(model.ActionReject); err != nil {
		return "", "", err
	}
	return approve, reject, nil
}
