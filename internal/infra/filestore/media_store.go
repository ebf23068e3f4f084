package filestore

import (
	"context"
	"sync"

	"vpn-subscription-bot/internal/domain/ports/repository"
)

var _ repository.MediaStore = (*MediaStore)(nil)

// MediaStore caches Telegram file ids in memory and persists them to JSON.
type MediaStore struct {
	file *jsonFile
	mu   sync.RWMutex
	ids  map[string]string
}

func NewMediaStore(ctx context.Context, path string) (*MediaStore, error) {
	f, err := newJSONFile(path)
	if err != nil {
		return nil, err
	}
	s := &MediaStore{file: f, ids: map[string]string{}}
	err = f.withLock(ctx, func() error { return f.read(&s.ids) })
	if err != nil {
		return nil, err
	}
	if s.ids == nil {
		s.ids = map[string]string{}
	}
	return s, nil
}

func (s *MediaStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ids[key]
	return id, ok && id != ""
}

func (s *MediaStore) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.ids))
	for k, v := range s.ids {
		out[k] = v
	}
	return out
}

func (s *MediaStore) Merge(ctx context.Context, ids map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.file.withLock(ctx, func() error {
		next := make(map[string]string, len(s.ids)+len(ids))
		for k, v := range s.ids {
			next[k] = v
		}
		for k, v := range ids {
			if v != "" {
				next[k] = v
			}
		}
		if err := s.file.write(next); err != nil {
			return err
		}
		s.ids = next
		return nil
	})
}

// Missing lists required keys without a file id.
func (s *MediaStore) Missing() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, k := range repository.RequiredMediaKeys {
		if s.ids[k] == "" {
			out = append(out, k)
		}
	}
	return out
}
