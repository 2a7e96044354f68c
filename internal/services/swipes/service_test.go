package swipes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
)

type tierStub struct {
	tier enums.Tier
}

func (s tierStub) ActiveTier(context.Context, int64, time.Time) (enums.Tier, error) {
	return s.tier, nil
}

type fixedQuota struct {
	used int
}

func (q fixedQuota) ConsumeLikeWithLimit(context.Context, pgx.Tx, int64, string, string, int) (int, error) {
	return q.used + 1, nil
}

func (q fixedQuota) ConsumeSuperLikeWithLimit(context.Context, pgx.Tx, int64, string, string, int) (int, error) {
	return 1, nil
}

func (q fixedQuota) GetLikesUsed(context.Context, int64, string) (int, error) {
	return q.used, nil
}

// swipeFlowStore keeps decisions in memory with upsert semantics matching
// the postgres repo: one row per (actor, target), replays untouched, a new
// direction overwrites.
type swipeFlowStore struct {
	decisions map[[2]int64]enums.Direction
}

func newSwipeFlowStore() *swipeFlowStore {
	return &swipeFlowStore{decisions: make(map[[2]int64]enums.Direction)}
}

func (s *swipeFlowStore) Upsert(_ context.Context, _ pgx.Tx, swipe model.Swipe) (model.Swipe, enums.Direction, bool, error) {
	key := [2]int64{swipe.ActorUserID, swipe.TargetUserID}
	prev, existed := s.decisions[key]
	s.decisions[key] = swipe.Direction

	stored := swipe
	stored.ID = 1
	stored.UpdatedAt = swipe.CreatedAt
	return stored, prev, !existed, nil
}

func (s *swipeFlowStore) HasPositive(_ context.Context, _ pgx.Tx, actorUserID, targetUserID int64) (bool, error) {
	return s.decisions[[2]int64{actorUserID, targetUserID}].Positive(), nil
}

type matchFlowStore struct {
	match     *model.Match
	creates   int
	unmatches int
}

func (m *matchFlowStore) CreateIfMissing(_ context.Context, _ pgx.Tx, userID, targetID int64, _ bool, now time.Time) (model.Match, bool, error) {
	if m.match != nil {
		return *m.match, false, nil
	}
	userA, userB := userID, targetID
	if userA > userB {
		userA, userB = userB, userA
	}
	m.creates++
	m.match = &model.Match{ID: 9001, UserAID: userA, UserBID: userB, Status: model.MatchStatusActive, CreatedAt: now}
	return *m.match, true, nil
}

func (m *matchFlowStore) EndActiveForPair(_ context.Context, _ pgx.Tx, _, _ int64, _ time.Time) error {
	if m.match != nil && m.match.Status == model.MatchStatusActive {
		m.match.Status = model.MatchStatusUnmatched
		m.unmatches++
	}
	return nil
}

type quotaRecorder struct {
	likeLimit  int
	likes      int
	superLikes int
}

func (q *quotaRecorder) ConsumeLikeWithLimit(_ context.Context, _ pgx.Tx, _ int64, _, _ string, limit int) (int, error) {
	if q.likeLimit > 0 && q.likes >= q.likeLimit {
		return q.likes, pgrepo.ErrLikesLimitReached
	}
	q.likes++
	return q.likes, nil
}

func (q *quotaRecorder) ConsumeSuperLikeWithLimit(_ context.Context, _ pgx.Tx, _ int64, _, _ string, _ int) (int, error) {
	q.superLikes++
	return q.superLikes, nil
}

func (q *quotaRecorder) GetLikesUsed(_ context.Context, _ int64, _ string) (int, error) {
	return q.likes, nil
}

type profileCardStub struct{}

func (profileCardStub) Get(_ context.Context, userID int64) (model.Profile, error) {
	return model.Profile{UserID: userID, DisplayName: "Ana", PrimaryPhotoURL: "https://cdn/ana.jpg"}, nil
}

func newFlowService(swipes *swipeFlowStore, matches *matchFlowStore, quota *quotaRecorder) *Service {
	svc := NewService(Dependencies{
		SwipeStore: swipes,
		MatchStore: matches,
		QuotaStore: quota,
		Tiers:      tierStub{tier: enums.TierNone},
		Profiles:   profileCardStub{},
	}, Config{})
	svc.runTx = func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
		return fn(ctx, nil)
	}
	return svc
}

func TestSwipeMutualLikeCreatesMatch(t *testing.T) {
	swipes := newSwipeFlowStore()
	swipes.decisions[[2]int64{2, 1}] = enums.DirectionLike

	matches := &matchFlowStore{}
	quota := &quotaRecorder{}
	svc := newFlowService(swipes, matches, quota)

	result, err := svc.Swipe(context.Background(), 1, 2, "like")
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if !result.MatchCreated || result.Match == nil {
		t.Fatalf("reciprocal like must create a match, got %+v", result)
	}
	if result.MatchCard == nil || result.MatchCard.DisplayName != "Ana" || result.MatchCard.PhotoURL != "https://cdn/ana.jpg" {
		t.Fatalf("match card must carry the counterpart's name and photo, got %+v", result.MatchCard)
	}
	if result.MatchCard.MatchID != result.Match.ID {
		t.Fatalf("match card id %d != match id %d", result.MatchCard.MatchID, result.Match.ID)
	}
	if quota.likes != 1 {
		t.Fatalf("one like consumed, got %d", quota.likes)
	}
}

func TestSwipeWithoutReciprocalDoesNotMatch(t *testing.T) {
	matches := &matchFlowStore{}
	svc := newFlowService(newSwipeFlowStore(), matches, &quotaRecorder{})

	result, err := svc.Swipe(context.Background(), 1, 2, "like")
	if err != nil {
		t.Fatalf("swipe: %v", err)
	}
	if result.MatchCreated || result.Match != nil || matches.creates != 0 {
		t.Fatalf("one-sided like must not create a match, got %+v", result)
	}
}

func TestSwipeReplaySpendsNoQuota(t *testing.T) {
	quota := &quotaRecorder{}
	svc := newFlowService(newSwipeFlowStore(), &matchFlowStore{}, quota)

	if _, err := svc.Swipe(context.Background(), 1, 2, "like"); err != nil {
		t.Fatalf("first swipe: %v", err)
	}
	result, err := svc.Swipe(context.Background(), 1, 2, "like")
	if err != nil {
		t.Fatalf("replayed swipe: %v", err)
	}
	if !result.Replay {
		t.Fatal("repeated decision must report replay")
	}
	if quota.likes != 1 {
		t.Fatalf("replay must not re-consume quota, likes = %d", quota.likes)
	}
}

func TestSwipeDislikeOverwriteEndsMatch(t *testing.T) {
	swipes := newSwipeFlowStore()
	swipes.decisions[[2]int64{2, 1}] = enums.DirectionLike

	matches := &matchFlowStore{}
	svc := newFlowService(swipes, matches, &quotaRecorder{})

	if _, err := svc.Swipe(context.Background(), 1, 2, "like"); err != nil {
		t.Fatalf("like: %v", err)
	}
	if matches.match == nil || matches.match.Status != model.MatchStatusActive {
		t.Fatalf("precondition: active match expected, got %+v", matches.match)
	}

	result, err := svc.Swipe(context.Background(), 1, 2, "dislike")
	if err != nil {
		t.Fatalf("dislike overwrite: %v", err)
	}
	if result.Replay || result.Match != nil {
		t.Fatalf("dislike overwrite is not a replay and carries no match, got %+v", result)
	}
	if matches.unmatches != 1 || matches.match.Status != model.MatchStatusUnmatched {
		t.Fatalf("withdrawing the like must end the match, got %+v", matches.match)
	}
}

func TestSwipeLikeUpgradeToSuperLikeKeepsLikeSlot(t *testing.T) {
	quota := &quotaRecorder{}
	svc := newFlowService(newSwipeFlowStore(), &matchFlowStore{}, quota)

	if _, err := svc.Swipe(context.Background(), 1, 2, "like"); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, err := svc.Swipe(context.Background(), 1, 2, "super_like"); err != nil {
		t.Fatalf("super like upgrade: %v", err)
	}
	if quota.likes != 1 {
		t.Fatalf("upgrade must not spend a second like slot, likes = %d", quota.likes)
	}
	if quota.superLikes != 1 {
		t.Fatalf("upgrade must spend a super like, superLikes = %d", quota.superLikes)
	}
}

func TestSwipeDailyLimitStopsLikes(t *testing.T) {
	quota := &quotaRecorder{likeLimit: 1}
	svc := newFlowService(newSwipeFlowStore(), &matchFlowStore{}, quota)

	if _, err := svc.Swipe(context.Background(), 1, 2, "like"); err != nil {
		t.Fatalf("first like: %v", err)
	}
	if _, err := svc.Swipe(context.Background(), 1, 3, "like"); !errors.Is(err, ErrDailyLimit) {
		t.Fatalf("exhausted quota must surface ErrDailyLimit, got %v", err)
	}
}

func TestIdempotencyKeyIsDeterministic(t *testing.T) {
	first := IdempotencyKey(101, 202)
	second := IdempotencyKey(101, 202)
	if first != second {
		t.Fatalf("same pair must yield the same key: %s vs %s", first, second)
	}

	reversed := IdempotencyKey(202, 101)
	if first == reversed {
		t.Fatal("reversed pair must yield a different key")
	}

	other := IdempotencyKey(101, 203)
	if first == other {
		t.Fatal("different targets must yield different keys")
	}
}

func TestSwipeRejectsBadInput(t *testing.T) {
	svc := NewService(Dependencies{}, Config{})

	if _, err := svc.Swipe(context.Background(), 0, 2, "like"); !errors.Is(err, ErrValidation) {
		t.Fatalf("zero actor should fail validation, got %v", err)
	}
	if _, err := svc.Swipe(context.Background(), 5, 5, "like"); !errors.Is(err, ErrSelfSwipe) {
		t.Fatalf("self swipe should be rejected, got %v", err)
	}
	if _, err := svc.Swipe(context.Background(), 5, 6, "wink"); !errors.Is(err, ErrUnsupportedAction) {
		t.Fatalf("unknown direction should be rejected, got %v", err)
	}
}

func TestLikesRemainingFreeTier(t *testing.T) {
	svc := NewService(Dependencies{
		Tiers:      tierStub{tier: enums.TierNone},
		QuotaStore: fixedQuota{used: 30},
	}, Config{DefaultTimezone: "America/Sao_Paulo"})
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC) }

	remaining, resetAt, err := svc.LikesRemaining(context.Background(), 7)
	if err != nil {
		t.Fatalf("likes remaining: %v", err)
	}
	if remaining != 5 {
		t.Fatalf("remaining: got %d want 5", remaining)
	}
	if !resetAt.After(svc.now()) {
		t.Fatalf("reset must be in the future, got %s", resetAt)
	}
}

func TestLikesRemainingUnlimitedForGold(t *testing.T) {
	svc := NewService(Dependencies{
		Tiers:      tierStub{tier: enums.TierGold},
		QuotaStore: fixedQuota{used: 999},
	}, Config{})

	remaining, _, err := svc.LikesRemaining(context.Background(), 7)
	if err != nil {
		t.Fatalf("likes remaining: %v", err)
	}
	if remaining != -1 {
		t.Fatalf("gold should be unlimited (-1), got %d", remaining)
	}
}
