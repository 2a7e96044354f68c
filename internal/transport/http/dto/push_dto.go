package dto

import "github.com/encontrocomfe/backend/internal/domain/model"

type PushTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type PushUnregisterRequest struct {
	Token string `json:"token"`
}

type CampaignRequest struct {
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	TargetURL string                 `json:"target_url,omitempty"`
	Audience  model.CampaignAudience `json:"audience"`
}

type AudienceResponse struct {
	Count int `json:"count"`
}
