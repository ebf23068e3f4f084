package memory

import (
	"context"
	"sync"
	"time"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/ports/repository"

	"github.com/google/uuid"
)

var _ repository.Locker = (*Locker)(nil)

type claim struct {
	token   string
	expires time.Time
}

// Locker is a process-local claim table.
type Locker struct {
	mu     sync.Mutex
	claims    map[string]claim
	now       func() time.Time
	nextSweep time.Time
}

func NewLocker() *Locker {
	return &Locker{claims: map[string]claim{}, now: time.Now}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)
	if c, ok := l.claims[key]; ok && now.Before(c.expires) {
		return "", domain.ErrClaimHeld
	}
	token := uuid.NewString()
	l.claims[key] = claim{token: token, expires: now.Add(ttl)}
	return token, nil
}

func (l *Locker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.claims[key]; ok && c.token == token {
		delete(l.claims, key)
	}
	return nil
}

// sweep drops lapsed claims nobody unlocked. Caller holds mu.
func (l *Locker) sweep(now time.Time) {
	if now.Before(l.nextSweep) {
		return
	}
	l.nextSweep = now.Add(sweepInterval)
	for key, c := range l.claims {
		if !now.Before(c.expires) {
			delete(l.claims, key)
		}
	}
}
