package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

// SessionRepo keeps per-chat sessions in Redis.
type SessionRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewSessionRepo(client RedisClient, ttl time.Duration) *SessionRepo {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepo{client: client, ttl: ttl}
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("session:%d", chatID)
}

func (s *SessionRepo) SetSession(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(session.ChatID), data, s.ttl)
}

func (s *SessionRepo) GetSession(ctx context.Context, chatID int64) (*model.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(chatID))
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionRepo) ClearSession(ctx context.Context, chatID int64) error {
	return s.client.Del(ctx, sessionKey(chatID))
}
