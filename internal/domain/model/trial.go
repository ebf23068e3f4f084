package model

import (
	"fmt"
	"time"
)

// TrialLedgerEntry records that a user consumed the free trial.
// UsedTrial is never cleared once set.
type TrialLedgerEntry struct {
	Username         string    `json:"username"`
	UsedTrial        bool      `json:"usedTrial"`
	TrialActivatedAt time.Time `json:"trialActivatedAt"`
}

func NewTrialLedgerEntry(telegramID int64, username string, now time.Time) TrialLedgerEntry {
	if username == "" {
		username = fmt.Sprintf("user_%d", telegramID)
	}
	return TrialLedgerEntry{
		Username:         username,
		UsedTrial:        true,
		TrialActivatedAt: now.UTC(),
	}
}
