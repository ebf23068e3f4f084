package repository

import (
	"context"

	"vpn-subscription-bot/internal/domain/model"
)

// TrialLedger is the durable at-most-once guard for free trials.
type TrialLedger interface {
	HasUsedTrial(ctx context.Context, telegramID int64) (bool, error)
	// MarkTrialUsed upserts the entry; calling it twice is harmless.
	MarkTrialUsed(ctx context.Context, telegramID int64, entry model.TrialLedgerEntry) error
	GetEntry(ctx context.Context, telegramID int64) (*model.TrialLedgerEntry, error)
}
