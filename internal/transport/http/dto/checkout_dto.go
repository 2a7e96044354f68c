package dto

import "github.com/encontrocomfe/backend/internal/domain/model"

type CheckoutIntentRequest struct {
	PlanID   string                `json:"plan_id"`
	Contact  model.PurchaseContact `json:"contact"`
	Bumps    []string              `json:"bumps,omitempty"`
	Source   string                `json:"source,omitempty"`
	Provider string                `json:"provider,omitempty"`
}

type WebhookRequest struct {
	PurchaseID  string `json:"purchase_id"`
	Provider    string `json:"provider"`
	ExternalRef string `json:"external_ref"`
	Status      string `json:"status"`
}

type WebhookResponse struct {
	Purchase         model.Purchase `json:"purchase"`
	AlreadyProcessed bool           `json:"already_processed"`
}

type PlansResponse struct {
	Plans []model.Plan `json:"plans"`
}
