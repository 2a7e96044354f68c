package matches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
)

const reportRateWindow = 10 * time.Minute

var (
	ErrValidation          = errors.New("validation error")
	ErrMatchNotFound       = errors.New("match not found")
	ErrInvalidReportReason = errors.New("invalid report reason")
)

// TooManyReportsError is returned when the reporter exceeded the per-window
// report quota.
type TooManyReportsError struct {
	retryAfter int64
}

func (e *TooManyReportsError) Error() string {
	return fmt.Sprintf("too many reports, retry in %ds", e.retryAfter)
}

func (e *TooManyReportsError) RetryAfter() int64 {
	return e.retryAfter
}

func IsTooManyReports(err error) (*TooManyReportsError, bool) {
	var target *TooManyReportsError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// TempUnavailableError signals the rate store failed; reporting fails closed.
type TempUnavailableError struct {
	retryAfter int64
}

func (e *TempUnavailableError) Error() string {
	return fmt.Sprintf("temporarily unavailable, retry in %ds", e.retryAfter)
}

func (e *TempUnavailableError) RetryAfter() int64 {
	return e.retryAfter
}

func IsTempUnavailable(err error) (*TempUnavailableError, bool) {
	var target *TempUnavailableError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

type MatchStore interface {
	GetByID(ctx context.Context, matchID int64) (model.Match, error)
	GetByPair(ctx context.Context, userID, targetID int64) (model.Match, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]pgrepo.MatchSummary, error)
	SetStatus(ctx context.Context, tx pgx.Tx, matchID int64, status string, now time.Time) error
}

type BlockStore interface {
	Upsert(ctx context.Context, tx pgx.Tx, blockerUserID, blockedUserID int64, now time.Time) error
}

type ReportStore interface {
	Create(ctx context.Context, tx pgx.Tx, report model.Report) (int64, error)
}

type ReportRateStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type Dependencies struct {
	Pool              *pgxpool.Pool
	MatchStore        MatchStore
	BlockStore        BlockStore
	ReportStore       ReportStore
	ReportRateStore   ReportRateStore
	ReportMaxPer10Min int
}

type Service struct {
	deps Dependencies
	now  func() time.Time
}

func NewService(deps Dependencies) *Service {
	if deps.ReportMaxPer10Min <= 0 {
		deps.ReportMaxPer10Min = 3
	}

	return &Service{
		deps: deps,
		now:  time.Now,
	}
}

// List returns the user's active conversations, newest activity first.
func (s *Service) List(ctx context.Context, userID int64, limit int) ([]pgrepo.MatchSummary, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}
	if s.deps.MatchStore == nil {
		return nil, fmt.Errorf("match store is nil")
	}

	return s.deps.MatchStore.ListForUser(ctx, userID, limit)
}

// Get loads a match the user participates in. Outsiders get ErrMatchNotFound
// rather than a hint the match exists.
func (s *Service) Get(ctx context.Context, userID, matchID int64) (model.Match, error) {
	if userID <= 0 || matchID <= 0 {
		return model.Match{}, ErrValidation
	}
	if s.deps.MatchStore == nil {
		return model.Match{}, fmt.Errorf("match store is nil")
	}

	match, err := s.deps.MatchStore.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return model.Match{}, ErrMatchNotFound
		}
		return model.Match{}, err
	}
	if !match.HasParticipant(userID) {
		return model.Match{}, ErrMatchNotFound
	}

	return match, nil
}

// Unmatch ends the match between the user and target. The row stays, with
// status flipped, so the pair can never re-match through the feed.
func (s *Service) Unmatch(ctx context.Context, userID, targetID int64) error {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return ErrValidation
	}
	if s.deps.Pool == nil || s.deps.MatchStore == nil {
		return fmt.Errorf("unmatch dependencies are not configured")
	}

	match, err := s.deps.MatchStore.GetByPair(ctx, userID, targetID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	if !match.Active() {
		return nil
	}

	return pgrepo.WithTx(ctx, s.deps.Pool, func(txCtx context.Context, tx pgx.Tx) error {
		return s.deps.MatchStore.SetStatus(txCtx, tx, match.ID, model.MatchStatusUnmatched, s.now().UTC())
	})
}

// Block records the block and, when an active match exists, ends it in the
// same transaction.
func (s *Service) Block(ctx context.Context, userID, targetID int64) error {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return ErrValidation
	}
	if s.deps.Pool == nil || s.deps.BlockStore == nil || s.deps.MatchStore == nil {
		return fmt.Errorf("block dependencies are not configured")
	}

	match, err := s.deps.MatchStore.GetByPair(ctx, userID, targetID)
	hasMatch := err == nil
	if err != nil && !errors.Is(err, pgrepo.ErrMatchNotFound) {
		return err
	}

	now := s.now().UTC()
	return pgrepo.WithTx(ctx, s.deps.Pool, func(txCtx context.Context, tx pgx.Tx) error {
		if err := s.deps.BlockStore.Upsert(txCtx, tx, userID, targetID, now); err != nil {
			return err
		}
		if hasMatch && match.Active() {
			return s.deps.MatchStore.SetStatus(txCtx, tx, match.ID, model.MatchStatusBlocked, now)
		}
		return nil
	})
}

// Report files a report against the target. blockToo additionally blocks the
// target and ends any active match, all in one transaction.
func (s *Service) Report(ctx context.Context, userID, targetID int64, reason, details string, blockToo bool) (int64, error) {
	if userID <= 0 || targetID <= 0 || userID == targetID {
		return 0, ErrValidation
	}
	parsedReason, ok := enums.ParseReportReason(reason)
	if !ok {
		return 0, ErrInvalidReportReason
	}
	if s.deps.Pool == nil || s.deps.ReportStore == nil {
		return 0, fmt.Errorf("report dependencies are not configured")
	}
	if blockToo && (s.deps.BlockStore == nil || s.deps.MatchStore == nil) {
		return 0, fmt.Errorf("report dependencies are not configured")
	}
	if err := s.checkReportRate(ctx, userID); err != nil {
		return 0, err
	}

	var match model.Match
	hasMatch := false
	if blockToo {
		found, err := s.deps.MatchStore.GetByPair(ctx, userID, targetID)
		if err != nil && !errors.Is(err, pgrepo.ErrMatchNotFound) {
			return 0, err
		}
		match = found
		hasMatch = err == nil
	}

	now := s.now().UTC()
	var reportID int64
	txErr := pgrepo.WithTx(ctx, s.deps.Pool, func(txCtx context.Context, tx pgx.Tx) error {
		id, err := s.deps.ReportStore.Create(txCtx, tx, model.Report{
			ReporterUserID: userID,
			ReportedUserID: targetID,
			Reason:         parsedReason,
			Details:        strings.TrimSpace(details),
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
		reportID = id

		if !blockToo {
			return nil
		}
		if err := s.deps.BlockStore.Upsert(txCtx, tx, userID, targetID, now); err != nil {
			return err
		}
		if hasMatch && match.Active() {
			return s.deps.MatchStore.SetStatus(txCtx, tx, match.ID, model.MatchStatusBlocked, now)
		}
		return nil
	})
	if txErr != nil {
		return 0, txErr
	}

	return reportID, nil
}

// checkReportRate fails closed: when the rate store cannot answer, the report
// is rejected with a short retry hint rather than let abuse through.
func (s *Service) checkReportRate(ctx context.Context, userID int64) error {
	if s.deps.ReportRateStore == nil {
		return nil
	}

	key := fmt.Sprintf("reports:rate:%d", userID)
	count, ttl, err := s.deps.ReportRateStore.IncrementWindow(ctx, key, reportRateWindow)
	if err != nil {
		return &TempUnavailableError{retryAfter: 10}
	}
	if count > int64(s.deps.ReportMaxPer10Min) {
		retryAfter := int64(ttl.Seconds())
		if retryAfter <= 0 {
			retryAfter = int64(reportRateWindow.Seconds())
		}
		return &TooManyReportsError{retryAfter: retryAfter}
	}

	return nil
}
