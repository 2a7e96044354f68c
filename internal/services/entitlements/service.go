package entitlements

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
	"github.com/encontrocomfe/backend/internal/domain/rules"
)

var ErrValidation = errors.New("validation error")

// Feature names gated features for denial payloads and logging.
type Feature string

const (
	FeatureCityStateFilter     Feature = "city_state_filter"
	FeatureUnsolicitedMessages Feature = "unsolicited_messages"
	FeatureSeeWhoLiked         Feature = "see_who_liked"
)

// DenialError is returned when a tier lacks a feature. It carries the
// cheapest plan that unlocks it so clients can render the upgrade offer.
type DenialError struct {
	Feature      Feature
	CurrentTier  enums.Tier
	RequiredTier enums.Tier
	Plan         *model.Plan
}

func (e *DenialError) Error() string {
	return fmt.Sprintf("feature %s requires tier %s (current %s)", e.Feature, e.RequiredTier, e.CurrentTier)
}

type TierStore interface {
	ActiveTier(ctx context.Context, userID int64, now time.Time) (enums.Tier, error)
}

type Service struct {
	tiers TierStore
	plans []model.Plan
	now   func() time.Time
}

type Snapshot struct {
	UserID       int64
	Tier         enums.Tier
	Capabilities rules.Capabilities
}

func NewService(tiers TierStore, plans []model.Plan) *Service {
	return &Service{
		tiers: tiers,
		plans: plans,
		now:   time.Now,
	}
}

func (s *Service) Get(ctx context.Context, userID int64) (Snapshot, error) {
	if userID <= 0 {
		return Snapshot{}, ErrValidation
	}
	if s.tiers == nil {
		return Snapshot{}, fmt.Errorf("tier store is nil")
	}

	tier, err := s.tiers.ActiveTier(ctx, userID, s.now().UTC())
	if err != nil {
		return Snapshot{}, fmt.Errorf("resolve active tier: %w", err)
	}

	return Snapshot{
		UserID:       userID,
		Tier:         tier,
		Capabilities: rules.CapabilitiesFor(tier),
	}, nil
}

// Require answers whether the user's tier includes the feature. On denial
// the error names the cheapest sufficient plan.
func (s *Service) Require(ctx context.Context, userID int64, feature Feature) (Snapshot, error) {
	snap, err := s.Get(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	pick := pickFor(feature)
	if pick == nil {
		return Snapshot{}, fmt.Errorf("unknown feature %q", feature)
	}
	if pick(snap.Capabilities) {
		return snap, nil
	}

	required := rules.MinTierFor(pick)
	return snap, &DenialError{
		Feature:      feature,
		CurrentTier:  snap.Tier,
		RequiredTier: required,
		Plan:         s.planForTier(required),
	}
}

func (s *Service) Plans() []model.Plan {
	out := make([]model.Plan, len(s.plans))
	copy(out, s.plans)
	return out
}

func (s *Service) planForTier(tier enums.Tier) *model.Plan {
	for i := range s.plans {
		if s.plans[i].Tier == tier {
			plan := s.plans[i]
			return &plan
		}
	}
	return nil
}

func pickFor(feature Feature) func(rules.Capabilities) bool {
	switch feature {
	case FeatureCityStateFilter:
		return func(c rules.Capabilities) bool { return c.CityStateFilter }
	case FeatureUnsolicitedMessages:
		return func(c rules.Capabilities) bool { return c.UnsolicitedMessages }
	case FeatureSeeWhoLiked:
		return func(c rules.Capabilities) bool { return c.SeeWhoLiked }
	default:
		return nil
	}
}
