package likes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
	"github.com/encontrocomfe/backend/internal/services/entitlements"
)

var ErrValidation = errors.New("validation error")

type SwipeStore interface {
	IncomingLikers(ctx context.Context, userID int64, limit int) ([]model.Swipe, error)
	CountIncomingLikers(ctx context.Context, userID int64) (int, error)
}

type ProfileStore interface {
	Get(ctx context.Context, userID int64) (model.Profile, error)
}

type Gate interface {
	Require(ctx context.Context, userID int64, feature entitlements.Feature) (entitlements.Snapshot, error)
}

type Dependencies struct {
	Swipes   SwipeStore
	Profiles ProfileStore
	Gate     Gate
}

type Service struct {
	deps Dependencies
}

// Liker is an incoming-like card for the who-liked-me screen.
type Liker struct {
	UserID      int64     `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Age         int       `json:"age"`
	City        string    `json:"city"`
	PhotoURL    string    `json:"photo_url"`
	SuperLike   bool      `json:"super_like"`
	LikedAt     time.Time `json:"liked_at"`
}

// IncomingResult always carries the count; the likers themselves only when
// the caller's tier includes see-who-liked.
type IncomingResult struct {
	Count  int         `json:"count"`
	Likers []Liker     `json:"likers,omitempty"`
	Locked bool        `json:"locked"`
	Plan   *model.Plan `json:"upgrade_plan,omitempty"`
}

func NewService(deps Dependencies) *Service {
	return &Service{deps: deps}
}

// Incoming returns who liked the user. Tiers without see-who-liked get the
// teaser count plus the upgrade plan from the denial.
func (s *Service) Incoming(ctx context.Context, userID int64, limit int) (IncomingResult, error) {
	if userID <= 0 {
		return IncomingResult{}, ErrValidation
	}
	if s.deps.Swipes == nil || s.deps.Gate == nil {
		return IncomingResult{}, fmt.Errorf("likes dependencies are not configured")
	}

	count, err := s.deps.Swipes.CountIncomingLikers(ctx, userID)
	if err != nil {
		return IncomingResult{}, err
	}

	if _, err := s.deps.Gate.Require(ctx, userID, entitlements.FeatureSeeWhoLiked); err != nil {
		var denial *entitlements.DenialError
		if errors.As(err, &denial) {
			return IncomingResult{Count: count, Locked: true, Plan: denial.Plan}, nil
		}
		return IncomingResult{}, err
	}

	swipes, err := s.deps.Swipes.IncomingLikers(ctx, userID, limit)
	if err != nil {
		return IncomingResult{}, err
	}

	likers := make([]Liker, 0, len(swipes))
	for _, swipe := range swipes {
		liker := Liker{
			UserID:    swipe.ActorUserID,
			SuperLike: swipe.Direction == enums.DirectionSuperLike,
			LikedAt:   swipe.UpdatedAt,
		}
		if s.deps.Profiles != nil {
			profile, err := s.deps.Profiles.Get(ctx, swipe.ActorUserID)
			if err != nil {
				if errors.Is(err, pgrepo.ErrProfileNotFound) {
					continue
				}
				return IncomingResult{}, err
			}
			liker.DisplayName = profile.DisplayName
			liker.Age = profile.Age
			liker.City = profile.City
			liker.PhotoURL = profile.PrimaryPhotoURL
		}
		likers = append(likers, liker)
	}

	return IncomingResult{Count: count, Likers: likers}, nil
}
