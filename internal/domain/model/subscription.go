package model

import (
	"time"

	"github.com/encontrocomfe/backend/internal/domain/enums"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusExpired  = "expired"
	SubscriptionStatusCanceled = "canceled"
)

type Subscription struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Tier      enums.Tier `json:"tier"`
	Status    string     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ActiveAt reports whether the subscription grants its tier at the given
// instant. A nil ExpiresAt means no fixed end.
func (s Subscription) ActiveAt(t time.Time) bool {
	if s.Status != SubscriptionStatusActive {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(t)
}

// Plan is a purchasable tier with its monthly price in BRL cents.
type Plan struct {
	ID         string     `json:"id"`
	Tier       enums.Tier `json:"tier"`
	Name       string     `json:"name"`
	PriceCents int64      `json:"price_cents"`
	PeriodDays int        `json:"period_days"`
	Highlights []string   `json:"highlights,omitempty"`
}
