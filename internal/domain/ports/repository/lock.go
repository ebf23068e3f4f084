package repository

import (
	"context"
	"time"
)

// Locker hands out short-lived exclusive claims on a key.
// TryLock returns domain.ErrClaimHeld when another holder owns the key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
