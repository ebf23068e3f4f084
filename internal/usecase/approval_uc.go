// File: internal/usecase/approval_uc.go
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

const (
	approvalClaimTTL   = 10 * time.Minute
	processedAtLayout  = "02.01.2006, 15:04:05"
	approvalLockPrefix = "approval"
)

// Compile-time check
var _ ApprovalUseCase = (*approvalUC)(nil)

// ApprovalUseCase executes the admin's decision on a forwarded receipt.
type ApprovalUseCase interface {
	// HandleCallback authorizes the actor, decodes data and runs the decision
	// against msg, the admin's copy of the receipt.
	HandleCallback(ctx context.Context, actorID int64, data string, msg model.AdminMessage) (model.ApprovalAction, error)
}

type ApprovalConfig struct {
	AdminID        int64
	SupportContact string
	Location       *time.Location
}

type approvalUC struct {
	bot       adapter.TelegramBotAdapter
	provision ProvisioningUseCase
	locker    repository.Locker
	screens   *Screens
	tr        Translator
	cfg       ApprovalConfig
	now       func() time.Time
	log       *zerolog.Logger
}

func NewApprovalUseCase(
	bot adapter.TelegramBotAdapter,
	provision ProvisioningUseCase,
	locker repository.Locker,
	screens *Screens,
	tr Translator,
	cfg ApprovalConfig,
	logger *zerolog.Logger,
) *approvalUC {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &approvalUC{
		bot:       bot,
		provision: provision,
		locker:    locker,
		screens:   screens,
		tr:        tr,
		cfg:       cfg,
		now:       time.Now,
		log:       logger,
	}
}

func (u *approvalUC) HandleCallback(ctx context.Context, actorID int64, data string, msg model.AdminMessage) (model.ApprovalAction, error) {
	defer logging.TraceDuration(u.log, "ApprovalUC.HandleCallback")()
	log := logging.With(ctx, u.log)

	if actorID != u.cfg.AdminID {
		metrics.IncApproval("unknown", "unauthorized")
		log.Warn().Int64("actor_id", actorID).Msg("approval attempt by non-admin")
		return "", domain.ErrUnauthorized
	}

	cmd, err := model.ParseApprovalCommand(data)
	if err != nil {
		metrics.IncApproval("unknown", "invalid")
		return "", err
	}

	claimKey := fmt.Sprintf("%s:%d:%d", approvalLockPrefix, msg.ChatID, msg.MessageID)
	token, err := u.locker.TryLock(ctx, claimKey, approvalClaimTTL)
	if err != nil {
		if errors.Is(err, domain.ErrClaimHeld) {
			metrics.IncApproval(string(cmd.Action), "duplicate")
			log.Info().Str("claim", claimKey).Msg("approval already in progress")
		}
		return cmd.Action, err
	}

	switch cmd.Action {
	case model.ActionApprove:
		err = u.approve(ctx, cmd, msg)
	default:
		err = u.reject(ctx, cmd, msg)
	}
	if err != nil {
		// Let the admin retry after a failure.
		if uerr := u.locker.Unlock(ctx, claimKey, token); uerr != nil {
			log.Warn().Err(uerr).Str("claim", claimKey).Msg("release approval claim")
		}
		return cmd.Action, err
	}
	return cmd.Action, nil
}

func (u *approvalUC) approve(ctx context.Context, cmd model.ApprovalCommand, msg model.AdminMessage) error {
	log := logging.With(ctx, u.log)
	tariff := model.ResolveTariffName(cmd.TariffName)
	if cmd.TariffFallback {
		log.Warn().Int64("target_id", cmd.TargetUserID).Msg("tariff missing from payload, using default")
	}

	acc, err := u.provision.Provision(ctx, cmd.TargetUserID, tariff)
	if err != nil {
		metrics.IncApproval(string(model.ActionApprove), "failed")
		log.Error().Err(err).Int64("target_id", cmd.TargetUserID).Str("tariff", tariff.Key).Msg("provisioning failed")
		notice := u.tr.T("admin.provision_failed", cmd.TargetUserID, tariff.Name, err.Error())
		if nerr := u.bot.SendMessage(ctx, adapter.SendMessageParams{ChatID: u.cfg.AdminID, Text: notice}); nerr != nil {
			log.Error().Err(nerr).Msg("notify admin about provisioning failure")
		}
		return fmt.Errorf("%w: %w", domain.ErrOperationFailed, err)
	}

	text := u.screens.WithLink(u.tr.T("payment.success"), acc.SubscriptionURL)
	if err := u.screens.Send(ctx, cmd.TargetUserID, repository.MediaPaymentSuccess, text, nil); err != nil {
		log.Error().Err(err).Int64("target_id", cmd.TargetUserID).Msg("deliver subscription link")
	}

	u.annotate(ctx, msg, u.tr.T("admin.approved_suffix", u.processedAt()))
	metrics.IncApproval(string(model.ActionApprove), "ok")
	log.Info().Int64("target_id", cmd.TargetUserID).Str("tariff", tariff.Key).Str("uuid", acc.UUID).Msg("payment approved")
	return nil
}

func (u *approvalUC) reject(ctx context.Context, cmd model.ApprovalCommand, msg model.AdminMessage) error {
	log := logging.With(ctx, u.log)
	tariff := model.ResolveTariffName(cmd.TariffName)

	notice := u.tr.T("payment.rejected", tariff.Name, u.cfg.SupportContact)
	if err := u.screens.Send(ctx, cmd.TargetUserID, repository.MediaPaymentRejected, notice, nil); err != nil {
		log.Error().Err(err).Int64("target_id", cmd.TargetUserID).Msg("deliver rejection notice")
	}
	if err := u.screens.Tariffs(ctx, cmd.TargetUserID); err != nil {
		log.Error().Err(err).Int64("target_id", cmd.TargetUserID).Msg("send tariff menu after rejection")
	}

	u.annotate(ctx, msg, u.tr.T("admin.rejected_suffix", u.processedAt()))
	metrics.IncApproval(string(model.ActionReject), "ok")
	log.Info().Int64("target_id", cmd.TargetUserID).Str("tariff", tariff.Key).Msg("payment rejected")
	return nil
}

// annotate appends the outcome to the admin's caption and strips the buttons.
func (u *approvalUC) annotate(ctx context.Context, msg model.AdminMessage, suffix string) {
	err := u.bot.EditCaption(ctx, adapter.EditCaptionParams{
		ChatID:      msg.ChatID,
		MessageID:   msg.MessageID,
		Caption:     msg.Caption + suffix,
		ReplyMarkup: StripButtons(),
	})
	if err != nil {
		logging.With(ctx, u.log).Error().Err(err).Int("message_id", msg.MessageID).Msg("update admin message")
	}
}

func (u *approvalUC) processedAt() string {
	return u.now().In(u.cfg.Location).Format(processedAtLayout)
}
