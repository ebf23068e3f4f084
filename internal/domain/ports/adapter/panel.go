package adapter

import (
	"context"

	"vpn-subscription-bot/internal/domain/model"
)

// Provisioner creates and lists accounts on the VPN panel.
type Provisioner interface {
	GetInboundUUID(ctx context.Context) (string, error)
	CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.ProvisionedAccount, error)
	GetAllUsers(ctx context.Context) (*model.UserPage, error)
	GetUsersByTelegramID(ctx context.Context, telegramID int64) ([]model.PanelUser, error)
}

// HealthProber reports whether the panel answers at all.
type HealthProber interface {
	TestConnection(ctx context.Context) bool
}
