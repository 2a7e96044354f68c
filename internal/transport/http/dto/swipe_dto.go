package dto

import (
	"github.com/encontrocomfe/backend/internal/domain/model"
	swipesvc "github.com/encontrocomfe/backend/internal/services/swipes"
)

type SwipeRequest struct {
	TargetID  int64  `json:"target_id"`
	Direction string `json:"direction"`
}

type SwipeResponse struct {
	Replay         bool                `json:"replay"`
	MatchCreated   bool                `json:"match_created"`
	Match          *model.Match        `json:"match,omitempty"`
	MatchCard      *swipesvc.MatchCard `json:"match_card,omitempty"`
	LikesRemaining int                 `json:"likes_remaining"`
}

type LikesQuotaResponse struct {
	Remaining int    `json:"remaining"`
	ResetsAt  string `json:"resets_at"`
}
