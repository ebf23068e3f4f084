// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

const ParseModeHTML = "HTML"

type Button struct {
	Text string
	Data string
	URL  string
}

// ReplyMarkup describes either an inline keyboard or a reply keyboard.
// An inline markup with no buttons removes the existing keyboard.
type ReplyMarkup struct {
	Buttons     [][]Button
	IsInline    bool
	Placeholder string
}

type SendMessageParams struct {
	ChatID                int64
	Text                  string
	ParseMode             string
	DisableWebPagePreview bool
	ReplyMarkup           *ReplyMarkup
}

// SendPhotoParams sends a photo by Telegram file id.
type SendPhotoParams struct {
	ChatID      int64
	FileID      string
	Caption     string
	ParseMode   string
	ReplyMarkup *ReplyMarkup
}

type SendDocumentParams struct {
	ChatID      int64
	FileID      string
	Caption     string
	ReplyMarkup *ReplyMarkup
}

type EditCaptionParams struct {
	ChatID      int64
	MessageID   int
	Caption     string
	ReplyMarkup *ReplyMarkup
}

type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, params SendMessageParams) error
	SendPhoto(ctx context.Context, params SendPhotoParams) error
	SendDocument(ctx context.Context, params SendDocumentParams) error
	EditCaption(ctx context.Context, params EditCaptionParams) error
}
