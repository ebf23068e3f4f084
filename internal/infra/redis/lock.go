// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"time"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/ports/repository"

	"github.com/google/uuid"
)

var _ repository.Locker = (*RedisLocker)(nil)

// RedisLocker hands out claims with SET NX; a held key fails immediately.
type RedisLocker struct {
	client RedisClient
}

func NewLocker(client RedisClient) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, lockKey(key), token, ttl)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrClaimHeld
	}
	return token, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	return l.client.DelIfEquals(ctx, lockKey(key), token)
}

func lockKey(key string) string { return "lock:" + key }
