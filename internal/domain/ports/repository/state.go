package repository

import (
	"context"

	"vpn-subscription-bot/internal/domain/model"
)

// SessionRepository is the port for per-chat conversation state.
// GetSession returns domain.ErrNotFound when the chat has no session.
type SessionRepository interface {
	SetSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, chatID int64) (*model.Session, error)
	ClearSession(ctx context.Context, chatID int64) error
}
