package model

import "time"

const (
	PurchaseStatusPending   = "pending"
	PurchaseStatusConfirmed = "confirmed"
	PurchaseStatusExpired   = "expired"
	PurchaseStatusFailed    = "failed"
)

const (
	PaymentProviderPix = "pix"
	PaymentProviderDev = "dev"
)

// PurchaseContact is the buyer info collected at checkout.
type PurchaseContact struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Document string `json:"document,omitempty"`
}

// Purchase is one checkout intent. Pending rows hold the pix payload the
// client renders; confirmation flips the status exactly once.
type Purchase struct {
	ID          string          `json:"id"`
	UserID      int64           `json:"user_id"`
	PlanID      string          `json:"plan_id"`
	Provider    string          `json:"provider"`
	Status      string          `json:"status"`
	AmountCents int64           `json:"amount_cents"`
	Contact     PurchaseContact `json:"contact"`
	Bumps       []string        `json:"bumps,omitempty"`
	Source      string          `json:"source,omitempty"`
	PixCode     string          `json:"pix_code,omitempty"`
	PixQRURL    string          `json:"pix_qr_url,omitempty"`
	ExternalRef string          `json:"external_ref,omitempty"`
	ExpiresAt   time.Time       `json:"expires_at"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
