package model

import "time"

// PushSubscription ties a user to one FCM registration token per device.
type PushSubscription struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CampaignAudience selects which users a broadcast reaches.
type CampaignAudience struct {
	Tier        string `json:"tier,omitempty"`
	State       string `json:"state,omitempty"`
	CityID      int64  `json:"city_id,omitempty"`
	ActiveSince string `json:"active_since,omitempty"`
}

type CampaignResult struct {
	Audience  int `json:"audience"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}
