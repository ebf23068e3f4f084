package model

import "time"

// Session is the per-chat conversation record.
type Session struct {
	ChatID             int64     `json:"chat_id"`
	SelectedTariffName string    `json:"selected_tariff,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TelegramUser is the subset of a Telegram sender the workflows need.
type TelegramUser struct {
	ID       int64
	Username string
	ChatID   int64
}

// Mention renders @username or the fallback used in admin captions.
func (u TelegramUser) Mention() string {
	if u.Username == "" {
		return "не указан"
	}
	return "@" + u.Username
}

// DisplayName is the name stored in the trial ledger.
func (u TelegramUser) DisplayName() string {
	return u.Username
}

// AdminMessage points at the admin's copy of a forwarded receipt.
type AdminMessage struct {
	ChatID    int64
	MessageID int
	Caption   string
	HasMedia  bool
}
