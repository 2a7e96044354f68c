package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/encontrocomfe/backend/internal/domain/model"
	pgrepo "github.com/encontrocomfe/backend/internal/repo/postgres"
)

var (
	ErrValidation     = errors.New("admin: invalid input")
	ErrReportNotFound = errors.New("admin: report not found")
	ErrUserNotFound   = errors.New("admin: user not found")
)

const defaultReportPageSize = 50

type ReportStore interface {
	GetByID(ctx context.Context, reportID int64) (model.Report, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]model.Report, error)
	Resolve(ctx context.Context, tx pgx.Tx, reportID, adminUserID int64, status, resolution string, now time.Time) error
}

type UserStore interface {
	GetByID(ctx context.Context, userID int64) (model.User, error)
	SetSuspended(ctx context.Context, tx pgx.Tx, userID int64, suspended bool, now time.Time) error
}

type MatchStore interface {
	SuspendAllForUser(ctx context.Context, tx pgx.Tx, userID int64, now time.Time) (int64, error)
}

type AuditStore interface {
	Record(ctx context.Context, tx pgx.Tx, adminUserID int64, action, targetID string, details map[string]any) error
	ListRecent(ctx context.Context, limit int) ([]pgrepo.AuditEntry, error)
}

type Dependencies struct {
	Pool    *pgxpool.Pool
	Reports ReportStore
	Users   UserStore
	Matches MatchStore
	Audit   AuditStore
	Logger  *zap.Logger
}

type Service struct {
	deps Dependencies
	now  func() time.Time
}

func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Service{deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) ListReports(ctx context.Context, status string, limit int) ([]model.Report, error) {
	if s.deps.Reports == nil {
		return nil, fmt.Errorf("admin: report store is not configured")
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		status = model.ReportStatusOpen
	}
	switch status {
	case model.ReportStatusOpen, model.ReportStatusResolved, model.ReportStatusDismissed:
	default:
		return nil, ErrValidation
	}
	if limit <= 0 || limit > 200 {
		limit = defaultReportPageSize
	}
	return s.deps.Reports.ListByStatus(ctx, status, limit)
}

type ResolveInput struct {
	ReportID    int64
	Resolution  string
	Dismiss     bool
	SuspendUser bool
}

// ResolveReport closes a report; optionally it also suspends the reported
// user in the same transaction.
func (s *Service) ResolveReport(ctx context.Context, adminUserID int64, in ResolveInput) error {
	if adminUserID <= 0 || in.ReportID <= 0 {
		return ErrValidation
	}
	if s.deps.Reports == nil {
		return fmt.Errorf("admin: report store is not configured")
	}

	report, err := s.deps.Reports.GetByID(ctx, in.ReportID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrReportNotFound) {
			return ErrReportNotFound
		}
		return fmt.Errorf("load report: %w", err)
	}
	if s.deps.Pool == nil || s.deps.Audit == nil {
		return fmt.Errorf("admin: dependencies are not configured")
	}

	status := model.ReportStatusResolved
	if in.Dismiss {
		status = model.ReportStatusDismissed
	}
	now := s.now()

	return pgrepo.WithTx(ctx, s.deps.Pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.deps.Reports.Resolve(ctx, tx, in.ReportID, adminUserID, status, strings.TrimSpace(in.Resolution), now); err != nil {
			return fmt.Errorf("resolve report: %w", err)
		}
		if in.SuspendUser && !in.Dismiss {
			if err := s.suspendTx(ctx, tx, report.ReportedUserID, now); err != nil {
				return err
			}
		}
		return s.deps.Audit.Record(ctx, tx, adminUserID, "report."+status, fmt.Sprintf("report:%d", in.ReportID), map[string]any{
			"reported_user_id": report.ReportedUserID,
			"suspended":        in.SuspendUser && !in.Dismiss,
		})
	})
}

// SuspendUser flags the account and deactivates its matches so both sides
// drop out of conversation lists immediately.
func (s *Service) SuspendUser(ctx context.Context, adminUserID, targetUserID int64, reason string) error {
	if adminUserID <= 0 || targetUserID <= 0 || adminUserID == targetUserID {
		return ErrValidation
	}
	if s.deps.Users == nil {
		return fmt.Errorf("admin: user store is not configured")
	}

	if _, err := s.deps.Users.GetByID(ctx, targetUserID); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}
	if s.deps.Pool == nil || s.deps.Matches == nil || s.deps.Audit == nil {
		return fmt.Errorf("admin: dependencies are not configured")
	}

	now := s.now()
	return pgrepo.WithTx(ctx, s.deps.Pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.suspendTx(ctx, tx, targetUserID, now); err != nil {
			return err
		}
		return s.deps.Audit.Record(ctx, tx, adminUserID, "user.suspend", fmt.Sprintf("user:%d", targetUserID), map[string]any{
			"reason": strings.TrimSpace(reason),
		})
	})
}

// UnsuspendUser lifts the flag only. Matches suspended alongside the user
// stay inactive; a lifted suspension must not resurrect old conversations.
func (s *Service) UnsuspendUser(ctx context.Context, adminUserID, targetUserID int64) error {
	if adminUserID <= 0 || targetUserID <= 0 {
		return ErrValidation
	}
	if s.deps.Pool == nil || s.deps.Users == nil || s.deps.Audit == nil {
		return fmt.Errorf("admin: dependencies are not configured")
	}

	if _, err := s.deps.Users.GetByID(ctx, targetUserID); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("load user: %w", err)
	}

	return pgrepo.WithTx(ctx, s.deps.Pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.deps.Users.SetSuspended(ctx, tx, targetUserID, false, s.now()); err != nil {
			return fmt.Errorf("unsuspend user: %w", err)
		}
		return s.deps.Audit.Record(ctx, tx, adminUserID, "user.unsuspend", fmt.Sprintf("user:%d", targetUserID), nil)
	})
}

func (s *Service) AuditTrail(ctx context.Context, limit int) ([]pgrepo.AuditEntry, error) {
	if s.deps.Audit == nil {
		return nil, fmt.Errorf("admin: audit store is not configured")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.deps.Audit.ListRecent(ctx, limit)
}

func (s *Service) suspendTx(ctx context.Context, tx pgx.Tx, userID int64, now time.Time) error {
	if err := s.deps.Users.SetSuspended(ctx, tx, userID, true, now); err != nil {
		return fmt.Errorf("suspend user: %w", err)
	}
	matches, err := s.deps.Matches.SuspendAllForUser(ctx, tx, userID, now)
	if err != nil {
		return fmt.Errorf("suspend matches: %w", err)
	}
	s.deps.Logger.Info("user suspended",
		zap.Int64("user_id", userID),
		zap.Int64("matches_suspended", matches))
	return nil
}
