package usecase

import (
	"context"
	"strings"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/ports/adapter"
	"vpn-subscription-bot/internal/infra/logging"

	"github.com/rs/zerolog"
)

const usersListLimit = 30

// Compile-time check
var _ AdminUseCase = (*adminUC)(nil)

// AdminUseCase serves the administrator's chat commands.
type AdminUseCase interface {
	IsAdmin(userID int64) bool
	// ListUsers sends the panel's user list to the admin chat.
	ListUsers(ctx context.Context, actorID, chatID int64) error
}

type adminUC struct {
	bot     adapter.TelegramBotAdapter
	panel   adapter.Provisioner
	tr      Translator
	adminID int64
	log     *zerolog.Logger
}

func NewAdminUseCase(bot adapter.TelegramBotAdapter, panel adapter.Provisioner, tr Translator, adminID int64, logger *zerolog.Logger) *adminUC {
	return &adminUC{bot: bot, panel: panel, tr: tr, adminID: adminID, log: logger}
}

func (u *adminUC) IsAdmin(userID int64) bool { return userID == u.adminID }

func (u *adminUC) ListUsers(ctx context.Context, actorID, chatID int64) error {
	defer logging.TraceDuration(u.log, "AdminUC.ListUsers")()

	if !u.IsAdmin(actorID) {
		return domain.ErrUnauthorized
	}
	page, err := u.panel.GetAllUsers(ctx)
	if err != nil {
		return err
	}
	if len(page.Users) == 0 {
		return u.bot.SendMessage(ctx, adapter.SendMessageParams{ChatID: chatID, Text: u.tr.T("admin.users_empty")})
	}

	total := page.Total
	if total < len(page.Users) {
		total = len(page.Users)
	}
	var b strings.Builder
	b.WriteString(u.tr.T("admin.users_header", total))
	for i, pu := range page.Users {
		if i == usersListLimit {
			b.WriteString("\n…")
			break
		}
		expires := "—"
		if pu.ExpireAt != nil {
			expires = pu.ExpireAt.Format("02.01.2006")
		}
		b.WriteString("\n")
		b.WriteString(u.tr.T("admin.users_line", i+1, escapeHTML(pu.Username), pu.Status, expires))
	}
	return u.bot.SendMessage(ctx, adapter.SendMessageParams{
		ChatID:    chatID,
		Text:      b.String(),
		ParseMode: adapter.ParseModeHTML,
	})
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }
