package repository

import "context"

// Media keys shown on bot screens.
const (
	MediaTariffs         = "tariffs"
	MediaInstruction     = "instruction"
	MediaPaymentSuccess  = "payment_success"
	MediaPaymentRejected = "payment_rejected"
	MediaWaiting         = "waiting"
	MediaRules           = "rules"
)

// RequiredMediaKeys lists every key the bot expects to have a file id for.
var RequiredMediaKeys = []string{
	MediaTariffs, MediaInstruction, MediaPaymentSuccess,
	MediaPaymentRejected, MediaWaiting, MediaRules,
}

// MediaStore maps media keys to Telegram file ids.
type MediaStore interface {
	Get(key string) (string, bool)
	All() map[string]string
	// Merge stores ids over the existing map and persists it.
	Merge(ctx context.Context, ids map[string]string) error
	Missing() []string
}
