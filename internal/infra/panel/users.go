// File: internal/infra/panel/users.go
package panel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/infra/logging"
	"vpn-subscription-bot/internal/infra/metrics"
)

const (
	inboundsTimeout   = 15 * time.Second
	createUserTimeout = 15 * time.Second
	listUsersTimeout  = 20 * time.Second
	userByTgTimeout   = 15 * time.Second

	listPageSize = 1000
)

// GetInboundUUID resolves the inbound new accounts attach to. A match from
// the panel's list is cached for the life of the client.
func (c *Client) GetInboundUUID(ctx context.Context) (string, error) {
	c.inboundMu.Lock()
	defer c.inboundMu.Unlock()

	if c.inboundUUID != "" {
		metrics.IncCacheRequest("inbound", "hit")
		return c.inboundUUID, nil
	}
	metrics.IncCacheRequest("inbound", "miss")

	inbounds, err := fetch[[]model.Inbound](ctx, c, "get_inbounds", http.MethodGet, "/api/inbounds", inboundsTimeout, nil)
	if err != nil {
		if c.opts.DefaultInboundUUID != "" {
			logging.With(ctx, c.log).Warn().Err(err).
				Str("default_uuid", c.opts.DefaultInboundUUID).
				Msg("inbound list unavailable, using default inbound")
			return c.opts.DefaultInboundUUID, nil
		}
		return "", err
	}

	uuid, how, err := pickInbound(*inbounds, c.opts.InboundTag, c.opts.DefaultInboundUUID)
	if err != nil {
		return "", err
	}
	logging.With(ctx, c.log).Info().Str("inbound_uuid", uuid).Str("match", how).Msg("inbound resolved")
	if how != "default" {
		c.inboundUUID = uuid
	}
	return uuid, nil
}

// pickInbound applies exact tag, substring, first and default in that order.
func pickInbound(list []model.Inbound, tag, fallback string) (uuid, how string, err error) {
	if tag != "" {
		for _, in := range list {
			if in.Tag == tag && in.UUID != "" {
				return in.UUID, "exact", nil
			}
		}
		for _, in := range list {
			if strings.Contains(in.Tag, tag) && in.UUID != "" {
				return in.UUID, "substring", nil
			}
		}
	}
	for _, in := range list {
		if in.UUID != "" {
			return in.UUID, "first", nil
		}
	}
	if fallback != "" {
		return fallback, "default", nil
	}
	return "", "", &Error{Kind: KindNotFound, Op: "get_inbounds", Err: fmt.Errorf("no inbound for tag %q", tag)}
}

// CreateUser creates an account. When the panel omits the subscription URL
// it is rebuilt from the uuid and the configured subscription base.
func (c *Client) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.ProvisionedAccount, error) {
	if strings.TrimSpace(req.Username) == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidArgument)
	}
	if req.ExpireAt.IsZero() {
		return nil, fmt.Errorf("%w: expireAt is required", domain.ErrInvalidArgument)
	}
	req.ExpireAt = req.ExpireAt.UTC()

	acc, err := fetch[model.ProvisionedAccount](ctx, c, "create_user", http.MethodPost, "/api/users", createUserTimeout, req)
	if err != nil {
		return nil, err
	}
	if acc.UUID == "" {
		return nil, malformed("create_user", errors.New("missing uuid"))
	}
	if acc.SubscriptionURL == "" && c.opts.SubscriptionURL != "" {
		acc.SubscriptionURL = model.DeriveSubscriptionURL(c.opts.SubscriptionURL, acc.UUID)
		acc.SubscriptionURLDerived = true
		logging.With(ctx, c.log).Warn().Str("uuid", acc.UUID).Msg("panel returned no subscription url, derived one from uuid")
	}
	logging.With(ctx, c.log).Info().Str("username", acc.Username).Str("uuid", acc.UUID).Msg("panel user created")
	return acc, nil
}

// GetAllUsers lists users for the admin. Failures are logged and produce an
// empty page.
func (c *Client) GetAllUsers(ctx context.Context) (*model.UserPage, error) {
	path := "/api/users?page=1&pageSize=" + strconv.Itoa(listPageSize)
	page, err := fetch[model.UserPage](ctx, c, "get_users", http.MethodGet, path, listUsersTimeout, nil)
	if err != nil {
		logging.With(ctx, c.log).Warn().Err(err).Msg("listing panel users failed")
		return &model.UserPage{}, nil
	}
	return page, nil
}

func (c *Client) GetUsersByTelegramID(ctx context.Context, telegramID int64) ([]model.PanelUser, error) {
	path := "/api/users/tg/" + strconv.FormatInt(telegramID, 10)
	users, err := fetch[[]model.PanelUser](ctx, c, "get_users_by_tg", http.MethodGet, path, userByTgTimeout, nil)
	if err != nil {
		return nil, err
	}
	return *users, nil
}
