package model

// Callback payloads of the static bot buttons. Tariff buttons use the tariff
// keys, approval buttons the ApprovalCommand encoding.
const (
	CallbackBackMain       = "back_main"
	CallbackBackTariffs    = "back_tariffs"
	CallbackPaymentSuccess = "payment_success"
	CallbackPaymentCancel  = "payment_cancel"
)

type ReceiptKind string

const (
	ReceiptPhoto    ReceiptKind = "photo"
	ReceiptDocument ReceiptKind = "document"
)

// Receipt is the proof of payment a user uploads after paying.
type Receipt struct {
	Kind   ReceiptKind
	FileID string
}
