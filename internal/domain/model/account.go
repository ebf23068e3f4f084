package model

import "time"

const (
	UserStatusActive      = "ACTIVE"
	DefaultTrafficLimit   = "MONTH"
	subscriptionURLSuffix = "/singbox"
)

// CreateUserRequest is the payload for creating an account on the panel.
type CreateUserRequest struct {
	Username             string    `json:"username"`
	TelegramID           int64     `json:"telegramId"`
	TrafficLimitBytes    int64     `json:"trafficLimitBytes"`
	TrafficLimitStrategy string    `json:"trafficLimitStrategy"`
	ExpireAt             time.Time `json:"expireAt"`
	Status               string    `json:"status"`
	ActivateAllInbounds  bool      `json:"activateAllInbounds"`
	ActiveUserInbounds   []string  `json:"activeUserInbounds,omitempty"`
	Description          string    `json:"description"`
}

// ProvisionedAccount is what the panel returns for a created account.
// The panel owns the canonical record.
type ProvisionedAccount struct {
	UUID            string `json:"uuid"`
	ShortUUID       string `json:"shortUuid,omitempty"`
	Username        string `json:"username"`
	SubscriptionURL string `json:"subscriptionUrl,omitempty"`
	// SubscriptionURLDerived is set when SubscriptionURL was built locally.
	SubscriptionURLDerived bool `json:"-"`
}

// DeriveSubscriptionURL builds {base}{uuid before first '-'}/singbox.
func DeriveSubscriptionURL(base, uuid string) string {
	if uuid == "" {
		return ""
	}
	short := uuid
	for i := 0; i < len(uuid); i++ {
		if uuid[i] == '-' {
			short = uuid[:i]
			break
		}
	}
	return base + short + subscriptionURLSuffix
}

// Inbound is a network ingress configured on the panel.
type Inbound struct {
	UUID string `json:"uuid"`
	Tag  string `json:"tag"`
	Type string `json:"type,omitempty"`
}

// PanelUser is a user record as listed by the panel.
type PanelUser struct {
	UUID            string     `json:"uuid"`
	Username        string     `json:"username"`
	Status          string     `json:"status"`
	TelegramID      *int64     `json:"telegramId,omitempty"`
	ExpireAt        *time.Time `json:"expireAt,omitempty"`
	SubscriptionURL string     `json:"subscriptionUrl,omitempty"`
	Description     string     `json:"description,omitempty"`
}

// UserPage is one page of panel users.
type UserPage struct {
	Users []PanelUser `json:"users"`
	Total int         `json:"total"`
}
