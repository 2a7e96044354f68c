package entitlements

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
)

type stubTierStore struct {
	tier enums.Tier
}

func (s stubTierStore) ActiveTier(context.Context, int64, time.Time) (enums.Tier, error) {
	return s.tier, nil
}

var testPlans = []model.Plan{
	{ID: "bronze", Tier: enums.TierBronze, Name: "Bronze", PriceCents: 1990, PeriodDays: 30},
	{ID: "silver", Tier: enums.TierSilver, Name: "Prata", PriceCents: 2990, PeriodDays: 30},
	{ID: "gold", Tier: enums.TierGold, Name: "Ouro", PriceCents: 4990, PeriodDays: 30},
}

func TestRequireDeniesWithUpgradePlan(t *testing.T) {
	svc := NewService(stubTierStore{tier: enums.TierBronze}, testPlans)

	_, err := svc.Require(context.Background(), 7, FeatureCityStateFilter)
	var denial *DenialError
	if !errors.As(err, &denial) {
		t.Fatalf("expected DenialError, got %v", err)
	}
	if denial.RequiredTier != enums.TierSilver {
		t.Fatalf("required tier: got %s want %s", denial.RequiredTier, enums.TierSilver)
	}
	if denial.Plan == nil || denial.Plan.ID != "silver" || denial.Plan.PriceCents != 2990 {
		t.Fatalf("denial should carry plan silver at 2990, got %+v", denial.Plan)
	}
}

func TestRequireAllowsSufficientTier(t *testing.T) {
	svc := NewService(stubTierStore{tier: enums.TierGold}, testPlans)

	snap, err := svc.Require(context.Background(), 7, FeatureSeeWhoLiked)
	if err != nil {
		t.Fatalf("gold should unlock see-who-liked: %v", err)
	}
	if !snap.Capabilities.SeeWhoLiked {
		t.Fatal("snapshot capabilities should include see-who-liked")
	}
}

func TestRequireSeeWhoLikedNeedsGold(t *testing.T) {
	svc := NewService(stubTierStore{tier: enums.TierSilver}, testPlans)

	_, err := svc.Require(context.Background(), 7, FeatureSeeWhoLiked)
	var denial *DenialError
	if !errors.As(err, &denial) {
		t.Fatalf("expected DenialError, got %v", err)
	}
	if denial.RequiredTier != enums.TierGold {
		t.Fatalf("required tier: got %s want %s", denial.RequiredTier, enums.TierGold)
	}
}
