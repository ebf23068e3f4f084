package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vpn-subscription-bot/internal/domain/model"
	"vpn-subscription-bot/internal/domain/ports/repository"
)

var _ repository.TrialLedger = (*TrialLedgerRepo)(nil)

// TrialLedgerRepo is the trial ledger for deployments that already run Postgres.
type TrialLedgerRepo struct {
	pool *pgxpool.Pool
}

func NewTrialLedgerRepo(pool *pgxpool.Pool) *TrialLedgerRepo {
	return &TrialLedgerRepo{pool: pool}
}

func (r *TrialLedgerRepo) HasUsedTrial(ctx context.Context, telegramID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM trial_ledger WHERE telegram_id=$1 AND used_trial);`
	var used bool
	if err := r.pool.QueryRow(ctx, q, telegramID).Scan(&used); err != nil {
		return false, wrapPgErr("has used trial", err)
	}
	return used, nil
}

func (r *TrialLedgerRepo) GetEntry(ctx context.Context, telegramID int64) (*model.TrialLedgerEntry, error) {
	const q = `
SELECT username, used_trial, trial_activated_at
  FROM trial_ledger WHERE telegram_id=$1;`
	var e model.TrialLedgerEntry
	err := r.pool.QueryRow(ctx, q, telegramID).Scan(&e.Username, &e.UsedTrial, &e.TrialActivatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapPgErr("get trial entry", err)
	}
	e.TrialActivatedAt = e.TrialActivatedAt.UTC()
	return &e, nil
}

// MarkTrialUsed inserts the entry once; later calls leave the first
// activation in place.
func (r *TrialLedgerRepo) MarkTrialUsed(ctx context.Context, telegramID int64, entry model.TrialLedgerEntry) error {
	const q = `
INSERT INTO trial_ledger (telegram_id, username, used_trial, trial_activated_at)
VALUES ($1, $2, TRUE, $3)
ON CONFLICT (telegram_id) DO UPDATE SET
  used_trial = TRUE,
  username = COALESCE(NULLIF(trial_ledger.username, ''), EXCLUDED.username)
WHERE NOT trial_ledger.used_trial;`
	if _, err := r.pool.Exec(ctx, q, telegramID, entry.Username, entry.TrialActivatedAt); err != nil {
		return wrapPgErr("mark trial used", err)
	}
	return nil
}

func wrapPgErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: postgres %s (%s): %w", op, pgErr.Code, pgErr.Message, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
