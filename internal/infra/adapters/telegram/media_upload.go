package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"vpn-subscription-bot/internal/domain"
	"vpn-subscription-bot/internal/domain/ports/adapter"
)

// UploadMedia sends <imagesDir>/<key>.png to the admin chat for each key,
// records the resulting file ids and removes the upload messages. It returns
// how many keys were stored.
func (r *RealTelegramBotAdapter) UploadMedia(ctx context.Context, keys []string) (int, error) {
	if r.adminID == 0 {
		return 0, fmt.Errorf("%w: admin chat is not configured", domain.ErrInvalidArgument)
	}
	ids := make(map[string]string, len(keys))
	var errs []error
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		id, err := r.uploadOne(key)
		if err != nil {
			r.log.Warn().Err(err).Str("key", key).Msg("media upload failed")
			errs = append(errs, err)
			continue
		}
		ids[key] = id
	}
	if len(ids) > 0 {
		if err := r.media.Merge(ctx, ids); err != nil {
			return 0, fmt.Errorf("save media ids: %w", err)
		}
	}
	r.log.Info().Int("uploaded", len(ids)).Int("requested", len(keys)).Msg("media uploaded")
	if len(ids) == 0 && len(errs) > 0 {
		return 0, errors.Join(errs...)
	}
	return len(ids), nil
}

func (r *RealTelegramBotAdapter) uploadOne(key string) (string, error) {
	path := filepath.Join(r.imagesDir, key+".png")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrMediaMissing, path)
	}
	sent, err := r.bot.Send(tgbotapi.NewPhoto(r.adminID, tgbotapi.FilePath(path)))
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if len(sent.Photo) == 0 {
		return "", fmt.Errorf("upload %s: no photo in reply", key)
	}
	largest := sent.Photo[len(sent.Photo)-1]
	if _, err := r.bot.Request(tgbotapi.NewDeleteMessage(r.adminID, sent.MessageID)); err != nil {
		r.log.Debug().Err(err).Str("key", key).Msg("could not delete upload message")
	}
	return largest.FileID, nil
}

// BootstrapMedia uploads whatever required media has no stored file id and
// reports the outcome to the admin.
func (r *RealTelegramBotAdapter) BootstrapMedia(ctx context.Context) error {
	missing := r.media.Missing()
	if len(missing) == 0 {
		return nil
	}
	r.log.Info().Strs("keys", missing).Msg("bootstrapping media")
	uploaded, err := r.UploadMedia(ctx, missing)
	text := r.tr.T("admin.media_uploaded", uploaded, len(missing))
	if err != nil {
		text = r.tr.T("admin.media_failed", err.Error())
	}
	if serr := r.SendMessage(ctx, adapter.SendMessageParams{ChatID: r.adminID, Text: text}); serr != nil {
		r.log.Warn().Err(serr).Msg("media bootstrap notice")
	}
	return err
}
