package model

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"vpn-subscription-bot/internal/domain"
)

type ApprovalAction string

const (
	ActionApprove ApprovalAction = "approve"
	ActionReject  ApprovalAction = "reject"
)

// MaxCallbackDataLen is the Telegram limit for inline button payloads.
const MaxCallbackDataLen = 64

// ApprovalCommand is the pending admin decision carried in a callback payload
// as action:targetUserId:base64(tariffName).
type ApprovalCommand struct {
	Action       ApprovalAction
	TargetUserID int64
	TariffName   string
	// TariffFallback reports that the payload tariff could not be decoded
	// and the default tariff was substituted.
	TariffFallback bool
}

func NewApprovalCommand(action ApprovalAction, targetUserID int64, tariffName string) (ApprovalCommand, error) {
	if action != ActionApprove && action != ActionReject {
		return ApprovalCommand{}, fmt.Errorf("%w: action %q", domain.ErrInvalidCallback, action)
	}
	if targetUserID <= 0 {
		return ApprovalCommand{}, fmt.Errorf("%w: target user id %d", domain.ErrInvalidCallback, targetUserID)
	}
	return ApprovalCommand{Action: action, TargetUserID: targetUserID, TariffName: tariffName}, nil
}

// Encode renders the callback payload. It fails when the result would not fit
// into a Telegram button.
func (c ApprovalCommand) Encode() (string, error) {
	enc := base64.StdEncoding.EncodeToString([]byte(c.TariffName))
	data := string(c.Action) + ":" + strconv.FormatInt(c.TargetUserID, 10) + ":" + enc
	if len(data) > MaxCallbackDataLen {
		return "", fmt.Errorf("%w: payload is %d bytes", domain.ErrInvalidCallback, len(data))
	}
	return data, nil
}

// IsApprovalPayload reports whether data looks like an approve/reject callback.
func IsApprovalPayload(data string) bool {
	return strings.HasPrefix(data, string(ActionApprove)+":") || strings.HasPrefix(data, string(ActionReject)+":")
}

// ParseApprovalCommand decodes a callback payload. A missing, undecodable or
// empty tariff is replaced by the default tariff; a bad action or user id is an
// error.
func ParseApprovalCommand(data string) (ApprovalCommand, error) {
	parts := strings.SplitN(strings.TrimSpace(data), ":", 3)
	if len(parts) < 2 {
		return ApprovalCommand{}, fmt.Errorf("%w: %q", domain.ErrInvalidCallback, data)
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return ApprovalCommand{}, fmt.Errorf("%w: target user id: %v", domain.ErrInvalidCallback, err)
	}
	cmd, err := NewApprovalCommand(ApprovalAction(parts[0]), userID, "")
	if err != nil {
		return ApprovalCommand{}, err
	}

	var encoded string
	if len(parts) == 3 {
		encoded = parts[2]
	}
	name, ok := decodeTariffName(encoded)
	if !ok {
		cmd.TariffName = DefaultTariff().Name
		cmd.TariffFallback = true
		return cmd, nil
	}
	cmd.TariffName = name
	return cmd, nil
}

func decodeTariffName(encoded string) (string, bool) {
	if encoded == "" {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	if !utf8.Valid(raw) {
		return "", false
	}
	name := strings.TrimSpace(string(raw))
	if name == "" {
		return "", false
	}
	return name, true
}
