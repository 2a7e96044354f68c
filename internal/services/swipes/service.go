package swipes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
	"github.com/encontrocomfe/backend/internal/domain/rules"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrUnsupportedAction = errors.New("unsupported swipe direction")
	ErrDailyLimit        = errors.New("daily like limit reached")
	ErrSuperLikeLimit    = errors.New("daily super like limit reached")
	ErrSelfSwipe         = errors.New("cannot swipe yourself")
	ErrTargetUnavailable = errors.New("target user unavailable")
)

// TooFastError is returned when the burst limiter rejects a swipe.
type TooFastError struct {
	retryAfter int64
}

func (e *TooFastError) Error() string {
	return fmt.Sprintf("too fast, retry in %ds", e.retryAfter)
}

func (e *TooFastError) RetryAfter() int64 {
	return e.retryAfter
}

func IsTooFast(err error) (*TooFastError, bool) {
	var target *TooFastError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// swipeNamespace seeds the deterministic idempotency key: the same
// (actor, target) pair always yields the same UUID, so client retries and
// double taps collapse onto one decision row.
var swipeNamespace = uuid.MustParse("7d3b9c52-1a4e-4f7b-9d22-6c8a5e90fd31")

func IdempotencyKey(actorUserID, targetUserID int64) string {
	return uuid.NewSHA1(swipeNamespace, []byte(fmt.Sprintf("%d:%d", actorUserID, targetUserID))).String()
}

type SwipeStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, swipe model.Swipe) (model.Swipe, enums.Direction, bool, error)
	HasPositive(ctx context.Context, tx pgx.Tx, actorUserID, targetUserID int64) (bool, error)
}

type MatchStore interface {
	CreateIfMissing(ctx context.Context, tx pgx.Tx, userID, targetID int64, direct bool, now time.Time) (model.Match, bool, error)
	EndActiveForPair(ctx context.Context, tx pgx.Tx, userID, targetID int64, now time.Time) error
}

type ProfileStore interface {
	Get(ctx context.Context, userID int64) (model.Profile, error)
}

type QuotaStore interface {
	ConsumeLikeWithLimit(ctx context.Context, tx pgx.Tx, userID int64, dayKey, timezone string, limit int) (int, error)
	ConsumeSuperLikeWithLimit(ctx context.Context, tx pgx.Tx, userID int64, dayKey, timezone string, limit int) (int, error)
	GetLikesUsed(ctx context.Context, userID int64, dayKey string) (int, error)
}

type TierStore interface {
	ActiveTier(ctx context.Context, userID int64, now time.Time) (enums.Tier, error)
}

type TargetStore interface {
	GetByID(ctx context.Context, userID int64) (model.User, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, userID int64) (int64, bool, error)
}

type Config struct {
	DefaultTimezone string
}

// MatchNotifier announces freshly created matches to both participants.
type MatchNotifier interface {
	NotifyMatch(match model.Match)
}

// MatchCard is the counterpart's display data for the celebration screen.
type MatchCard struct {
	MatchID     int64  `json:"match_id"`
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
}

type SwipeResult struct {
	Swipe          model.Swipe
	Replay         bool
	MatchCreated   bool
	Match          *model.Match
	MatchCard      *MatchCard
	LikesRemaining int // -1 means unlimited
}

type Service struct {
	swipeStore  SwipeStore
	matchStore  MatchStore
	quotaStore  QuotaStore
	tiers       TierStore
	targets     TargetStore
	profiles    ProfileStore
	rateLimiter RateLimiter
	notifier    MatchNotifier
	cfg         Config
	now         func() time.Time
	runTx       func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

// SetMatchNotifier attaches the realtime match announcer. Optional.
func (s *Service) SetMatchNotifier(n MatchNotifier) {
	s.notifier = n
}

type Dependencies struct {
	Pool        *pgxpool.Pool
	SwipeStore  SwipeStore
	MatchStore  MatchStore
	QuotaStore  QuotaStore
	Tiers       TierStore
	Targets     TargetStore
	Profiles    ProfileStore
	RateLimiter RateLimiter
}

func NewService(deps Dependencies, cfg Config) *Service {
	if strings.TrimSpace(cfg.DefaultTimezone) == "" {
		cfg.DefaultTimezone = "UTC"
	}

	return &Service{
		swipeStore:  deps.SwipeStore,
		matchStore:  deps.MatchStore,
		quotaStore:  deps.QuotaStore,
		tiers:       deps.Tiers,
		targets:     deps.Targets,
		profiles:    deps.Profiles,
		rateLimiter: deps.RateLimiter,
		cfg:         cfg,
		now:         time.Now,
		runTx: func(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, deps.Pool, fn)
		},
	}
}

// Swipe records one decision and detects a reciprocal-positive match inside
// a single transaction. A repeated swipe on the same target is a replay:
// the stored decision comes back untouched and no quota is spent.
func (s *Service) Swipe(ctx context.Context, userID, targetID int64, direction string) (SwipeResult, error) {
	if userID <= 0 || targetID <= 0 {
		return SwipeResult{}, ErrValidation
	}
	if userID == targetID {
		return SwipeResult{}, ErrSelfSwipe
	}
	dir, ok := enums.ParseDirection(direction)
	if !ok {
		return SwipeResult{}, ErrUnsupportedAction
	}
	if s.runTx == nil || s.swipeStore == nil || s.matchStore == nil || s.quotaStore == nil || s.tiers == nil {
		return SwipeResult{}, fmt.Errorf("swipe dependencies are not configured")
	}

	now := s.now().UTC()
	loc, tzName := s.resolveTimezone()
	dayKey := rules.DayKey(now, loc)

	if s.targets != nil {
		target, err := s.targets.GetByID(ctx, targetID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				return SwipeResult{}, ErrTargetUnavailable
			}
			return SwipeResult{}, fmt.Errorf("resolve swipe target: %w", err)
		}
		if target.Suspended {
			return SwipeResult{}, ErrTargetUnavailable
		}
	}

	if s.rateLimiter != nil {
		if retryAfter, allowed, err := s.rateLimiter.Allow(ctx, userID); err != nil {
			return SwipeResult{}, fmt.Errorf("apply swipe rate limiter: %w", err)
		} else if !allowed {
			return SwipeResult{}, &TooFastError{retryAfter: retryAfter}
		}
	}

	tier, err := s.tiers.ActiveTier(ctx, userID, now)
	if err != nil {
		return SwipeResult{}, fmt.Errorf("resolve active tier: %w", err)
	}
	caps := rules.CapabilitiesFor(tier)

	result := SwipeResult{LikesRemaining: -1}
	if err := s.runTx(ctx, func(txCtx context.Context, tx pgx.Tx) error {
		stored, prev, created, err := s.swipeStore.Upsert(txCtx, tx, model.Swipe{
			ActorUserID:    userID,
			TargetUserID:   targetID,
			Direction:      dir,
			IdempotencyKey: IdempotencyKey(userID, targetID),
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
		result.Swipe = stored
		result.Replay = !created && prev == dir
		prevPositive := !created && prev.Positive()

		if dir.Positive() && !result.Replay {
			if dir == enums.DirectionSuperLike && prev != enums.DirectionSuperLike && caps.DailySuperLikes > 0 {
				if _, err := s.quotaStore.ConsumeSuperLikeWithLimit(txCtx, tx, userID, dayKey, tzName, caps.DailySuperLikes); err != nil {
					if errors.Is(err, pgrepo.ErrSuperLikesLimitReached) {
						return ErrSuperLikeLimit
					}
					return err
				}
			}
			// A like upgraded to a super like already spent its like slot.
			if !prevPositive && caps.DailyLikeLimit > 0 {
				used, err := s.quotaStore.ConsumeLikeWithLimit(txCtx, tx, userID, dayKey, tzName, caps.DailyLikeLimit)
				if err != nil {
					if errors.Is(err, pgrepo.ErrLikesLimitReached) {
						return ErrDailyLimit
					}
					return err
				}
				result.LikesRemaining = caps.DailyLikeLimit - used
			}
		}

		if dir.Positive() {
			reciprocal, err := s.swipeStore.HasPositive(txCtx, tx, targetID, userID)
			if err != nil {
				return err
			}
			if reciprocal {
				match, matchCreated, err := s.matchStore.CreateIfMissing(txCtx, tx, userID, targetID, false, now)
				if err != nil {
					return err
				}
				if match.Active() {
					result.Match = &match
					result.MatchCreated = matchCreated
				}
			}
		} else if prevPositive {
			// Withdrawing a like ends the match: it exists only while both
			// directions are positive.
			if err := s.matchStore.EndActiveForPair(txCtx, tx, userID, targetID, now); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return SwipeResult{}, err
	}

	if result.Match != nil {
		result.MatchCard = s.matchCard(ctx, *result.Match, targetID)
	}
	if result.MatchCreated && result.Match != nil && s.notifier != nil {
		s.notifier.NotifyMatch(*result.Match)
	}

	if result.LikesRemaining == -1 && caps.DailyLikeLimit > 0 {
		used, err := s.quotaStore.GetLikesUsed(ctx, userID, dayKey)
		if err == nil {
			result.LikesRemaining = caps.DailyLikeLimit - used
			if result.LikesRemaining < 0 {
				result.LikesRemaining = 0
			}
		}
	}

	return result, nil
}

// LikesRemaining reports how many free-tier likes the user still has today.
func (s *Service) LikesRemaining(ctx context.Context, userID int64) (int, time.Time, error) {
	if userID <= 0 {
		return 0, time.Time{}, ErrValidation
	}

	now := s.now().UTC()
	loc, _ := s.resolveTimezone()
	dayKey := rules.DayKey(now, loc)
	resetAt := rules.NextResetAt(now, loc)

	tier, err := s.tiers.ActiveTier(ctx, userID, now)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("resolve active tier: %w", err)
	}
	caps := rules.CapabilitiesFor(tier)
	if caps.DailyLikeLimit <= 0 {
		return -1, resetAt, nil
	}

	used, err := s.quotaStore.GetLikesUsed(ctx, userID, dayKey)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("read like quota: %w", err)
	}

	remaining := caps.DailyLikeLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, resetAt, nil
}

// matchCard joins the counterpart's profile into the swipe response so the
// client can open the celebration screen without a second round trip.
func (s *Service) matchCard(ctx context.Context, match model.Match, targetID int64) *MatchCard {
	card := &MatchCard{MatchID: match.ID, UserID: targetID}
	if s.profiles == nil {
		return card
	}
	profile, err := s.profiles.Get(ctx, targetID)
	if err != nil {
		return card
	}
	card.DisplayName = profile.DisplayName
	card.PhotoURL = profile.PrimaryPhotoURL
	return card
}

func (s *Service) resolveTimezone() (*time.Location, string) {
	candidate := strings.TrimSpace(s.cfg.DefaultTimezone)
	if candidate == "" {
		candidate = "UTC"
	}

	loc, err := time.LoadLocation(candidate)
	if err != nil {
		return time.UTC, "UTC"
	}
	return loc, candidate
}
