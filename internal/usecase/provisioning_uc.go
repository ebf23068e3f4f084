package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ ProvisioningUseCase = (*provisioningUC)(nil)

// ProvisioningUseCase turns a tariff into an account on the panel.
type ProvisioningUseCase interface {
	Provision(ctx context.Context, telegramID int64, tariff model.Tariff) (*model.ProvisionedAccount, error)
}

type ProvisioningConfig struct {
	TrafficLimitStrategy string
	ActivateAllInbounds  bool
	// FallbackURL is the link shown when the panel gives no subscription URL.
	FallbackURL string
}

type provisioningUC struct {
	panel  adapter.Provisioner
	cfg    ProvisioningConfig
	now    func() time.Time
	suffix func() int
	log    *zerolog.Logger
}

func NewProvisioningUseCase(panel adapter.Provisioner, cfg ProvisioningConfig, logger *zerolog.Logger) *provisioningUC {
	if cfg.TrafficLimitStrategy == "" {
		cfg.TrafficLimitStrategy = model.DefaultTrafficLimit
	}
	return &provisioningUC{
		panel:  panel,
		cfg:    cfg,
		now:    time.Now,
		suffix: func() int { return rand.Intn(1000) },
		log:    logger,
	}
}

func (u *provisioningUC) Provision(ctx context.Context, telegramID int64, tariff model.Tariff) (*model.ProvisionedAccount, error) {
	defer logging.TraceDuration(u.log, "ProvisioningUC.Provision")()

	inbound, err := u.panel.GetInboundUUID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve inbound: %w", err)
	}

	req := model.CreateUserRequest{
		Username:             fmt.Sprintf("tg_%d_%d", telegramID, u.suffix()),
		TelegramID:           telegramID,
		TrafficLimitBytes:    0,
		TrafficLimitStrategy: u.cfg.TrafficLimitStrategy,
		ExpireAt:             tariff.ExpiryFrom(u.now()),
		Status:               model.UserStatusActive,
		ActivateAllInbounds:  u.cfg.ActivateAllInbounds,
		Description:          "Тариф: " + tariff.Name,
	}
	if !u.cfg.ActivateAllInbounds {
		req.ActiveUserInbounds = []string{inbound}
	}

	acc, err := u.panel.CreateUser(ctx, req)
	if err != nil {
		return nil, err
	}
	if acc.SubscriptionURL == "" {
		acc.SubscriptionURL = u.cfg.FallbackURL
	}
	if acc.SubscriptionURL == "" {
		logging.With(ctx, u.log).Warn().Str("uuid", acc.UUID).Msg("no subscription url for account, link omitted")
	}
	logging.With(ctx, u.log).Info().
		Int64("target_id", telegramID).
		Str("tariff", tariff.Key).
		Str("uuid", acc.UUID).
		Time("expire_at", req.ExpireAt).
		Msg("account provisioned")
	return acc, nil
}
