// Package memory holds in-process stand-ins used when Redis is not configured.
package memory

import (
	"context"
	"sync"
	"time"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

type sessionItem struct {
	session model.Session
	expires time.Time
}

// sweepInterval bounds how often writes scan the maps for expired entries.
const sweepInterval = time.Minute

// SessionRepo is a map of sessions with a sliding TTL.
type SessionRepo struct {
	mu        sync.Mutex
	items     map[int64]sessionItem
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
}

func NewSessionRepo(ttl time.Duration) *SessionRepo {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepo{items: map[int64]sessionItem{}, ttl: ttl, now: time.Now}
}

func (r *SessionRepo) SetSession(ctx context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sweep(now)
	r.items[s.ChatID] = sessionItem{session: *s, expires: now.Add(r.ttl)}
	return nil
}

// sweep drops expired sessions of chats that never came back. Caller holds mu.
func (r *SessionRepo) sweep(now time.Time) {
	if now.Before(r.nextSweep) {
		return
	}
	r.nextSweep = now.Add(sweepInterval)
	for id, it := range r.items {
		if now.After(it.expires) {
			delete(r.items, id)
		}
	}
}

func (r *SessionRepo) GetSession(ctx context.Context, chatID int64) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[chatID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if r.now().After(it.expires) {
		delete(r.items, chatID)
		return nil, domain.ErrNotFound
	}
	s := it.session
	return &s, nil
}

func (r *SessionRepo) ClearSession(ctx context.Context, chatID int64) error {
	r.mu.Lock()
	delete(r.items, chatID)
	r.mu.Unlock()
	return nil
}
