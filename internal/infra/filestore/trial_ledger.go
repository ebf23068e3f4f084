package filestore

import (
	"context"
	"strconv"
	"sync"

	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

var _ repository.TrialLedger = (*TrialLedger)(nil)

type ledgerDoc struct {
	Users map[string]model.TrialLedgerEntry `json:"users"`
}

// TrialLedger stores trial usage in a JSON file keyed by Telegram id.
type TrialLedger struct {
	file *jsonFile
	mu   sync.Mutex
	log  *zerolog.Logger
}

func NewTrialLedger(path string, log *zerolog.Logger) (*TrialLedger, error) {
	f, err := newJSONFile(path)
	if err != nil {
		return nil, err
	}
	l := log.With().Str("component", "trial_ledger").Str("path", path).Logger()
	return &TrialLedger{file: f, log: &l}, nil
}

func (s *TrialLedger) load() (ledgerDoc, error) {
	doc := ledgerDoc{Users: map[string]model.TrialLedgerEntry{}}
	if err := s.file.read(&doc); err != nil {
		return doc, err
	}
	if doc.Users == nil {
		doc.Users = map[string]model.TrialLedgerEntry{}
	}
	return doc, nil
}

func (s *TrialLedger) HasUsedTrial(ctx context.Context, telegramID int64) (bool, error) {
	e, err := s.GetEntry(ctx, telegramID)
	if err != nil {
		return false, err
	}
	return e != nil && e.UsedTrial, nil
}

// GetEntry returns nil without error when the user has no entry.
func (s *TrialLedger) GetEntry(ctx context.Context, telegramID int64) (*model.TrialLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc ledgerDoc
	err := s.file.withLock(ctx, func() (err error) {
		doc, err = s.load()
		return err
	})
	if err != nil {
		return nil, err
	}
	e, ok := doc.Users[strconv.FormatInt(telegramID, 10)]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

// MarkTrialUsed upserts the entry. An existing used entry keeps its original
// activation time.
func (s *TrialLedger) MarkTrialUsed(ctx context.Context, telegramID int64, entry model.TrialLedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strconv.FormatInt(telegramID, 10)
	return s.file.withLock(ctx, func() error {
		doc, err := s.load()
		if err != nil {
			return err
		}
		if prev, ok := doc.Users[key]; ok && prev.UsedTrial {
			s.log.Debug().Int64("tg_id", telegramID).Msg("trial already recorded")
			return nil
		}
		entry.UsedTrial = true
		doc.Users[key] = entry
		if err := s.file.write(doc); err != nil {
			return err
		}
		s.log.Info().Int64("tg_id", telegramID).Str("username", entry.Username).Msg("trial recorded")
		return nil
	})
}
