package model

import (
	"time"

	"github.com/encontrocomfe/backend/internal/domain/enums"
)

type Swipe struct {
	ID             int64           `json:"id"`
	ActorUserID    int64           `json:"actor_user_id"`
	TargetUserID   int64           `json:"target_user_id"`
	Direction      enums.Direction `json:"direction"`
	IdempotencyKey string          `json:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
