package likes

import (
	"context"
	"testing"
	"time"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
	"github.com/encontrocomfe/backend/internal/services/entitlements"
)

type swipeStoreStub struct {
	swipes []model.Swipe
}

func (s swipeStoreStub) IncomingLikers(context.Context, int64, int) ([]model.Swipe, error) {
	return s.swipes, nil
}

func (s swipeStoreStub) CountIncomingLikers(context.Context, int64) (int, error) {
	return len(s.swipes), nil
}

type profileStoreStub struct{}

func (profileStoreStub) Get(_ context.Context, userID int64) (model.Profile, error) {
	return model.Profile{UserID: userID, DisplayName: "Maria", Age: 27, City: "Recife"}, nil
}

type allowGate struct{}

func (allowGate) Require(context.Context, int64, entitlements.Feature) (entitlements.Snapshot, error) {
	return entitlements.Snapshot{Tier: enums.TierGold}, nil
}

type denyGate struct {
	plan *model.Plan
}

func (g denyGate) Require(context.Context, int64, entitlements.Feature) (entitlements.Snapshot, error) {
	return entitlements.Snapshot{}, &entitlements.DenialError{
		Feature:      entitlements.FeatureSeeWhoLiked,
		CurrentTier:  enums.TierSilver,
		RequiredTier: enums.TierGold,
		Plan:         g.plan,
	}
}

func incomingSwipes() []model.Swipe {
	at := time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC)
	return []model.Swipe{
		{ID: 1, ActorUserID: 11, TargetUserID: 1, Direction: enums.DirectionSuperLike, UpdatedAt: at},
		{ID: 2, ActorUserID: 12, TargetUserID: 1, Direction: enums.DirectionLike, UpdatedAt: at.Add(-time.Hour)},
	}
}

func TestIncomingCountOnlyBelowGold(t *testing.T) {
	plan := &model.Plan{ID: "gold", Tier: enums.TierGold, PriceCents: 4990}
	svc := NewService(Dependencies{
		Swipes:   swipeStoreStub{swipes: incomingSwipes()},
		Profiles: profileStoreStub{},
		Gate:     denyGate{plan: plan},
	})

	result, err := svc.Incoming(context.Background(), 1, 50)
	if err != nil {
		t.Fatalf("incoming: %v", err)
	}
	if result.Count != 2 {
		t.Fatalf("count: got %d want 2", result.Count)
	}
	if !result.Locked || len(result.Likers) != 0 {
		t.Fatalf("below gold the likers must stay hidden, got %+v", result)
	}
	if result.Plan == nil || result.Plan.ID != "gold" {
		t.Fatalf("teaser must carry the upgrade plan, got %+v", result.Plan)
	}
}

func TestIncomingRevealsLikersForGold(t *testing.T) {
	svc := NewService(Dependencies{
		Swipes:   swipeStoreStub{swipes: incomingSwipes()},
		Profiles: profileStoreStub{},
		Gate:     allowGate{},
	})

	result, err := svc.Incoming(context.Background(), 1, 50)
	if err != nil {
		t.Fatalf("incoming: %v", err)
	}
	if result.Locked {
		t.Fatal("gold must not be locked out")
	}
	if len(result.Likers) != 2 {
		t.Fatalf("likers: got %d want 2", len(result.Likers))
	}
	if !result.Likers[0].SuperLike {
		t.Fatal("super likes must be flagged")
	}
	if result.Likers[0].DisplayName != "Maria" {
		t.Fatalf("liker card must carry the profile, got %q", result.Likers[0].DisplayName)
	}
}
