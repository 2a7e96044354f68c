package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encontrocomfe/backend/internal/domain/model"
)

var ErrReportNotFound = errors.New("report not found")

type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

func (r *ReportRepo) Create(ctx context.Context, tx pgx.Tx, report model.Report) (int64, error) {
	if report.ReporterUserID <= 0 || report.ReportedUserID <= 0 || report.ReporterUserID == report.ReportedUserID {
		return 0, fmt.Errorf("invalid report payload")
	}
	if strings.TrimSpace(string(report.Reason)) == "" {
		return 0, fmt.Errorf("report reason is required")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	now := report.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO reports (
	reporter_user_id,
	reported_user_id,
	reason,
	details,
	status,
	created_at
) VALUES ($1, $2, $3, $4, 'open', $5)
RETURNING id
`, report.ReporterUserID, report.ReportedUserID, string(report.Reason), strings.TrimSpace(report.Details), now.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create report: %w", err)
	}

	return id, nil
}

func (r *ReportRepo) GetByID(ctx context.Context, reportID int64) (model.Report, error) {
	if reportID <= 0 {
		return model.Report{}, fmt.Errorf("invalid report id")
	}

	var rep model.Report
	err := r.pool.QueryRow(ctx, `
SELECT id, reporter_user_id, reported_user_id, reason, COALESCE(details, ''),
	status, COALESCE(resolution, ''), resolved_by_user_id, resolved_at, created_at
FROM reports
WHERE id = $1
`, reportID).Scan(
		&rep.ID,
		&rep.ReporterUserID,
		&rep.ReportedUserID,
		&rep.Reason,
		&rep.Details,
		&rep.Status,
		&rep.Resolution,
		&rep.ResolvedByUserID,
		&rep.ResolvedAt,
		&rep.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Report{}, ErrReportNotFound
		}
		return model.Report{}, fmt.Errorf("get report: %w", err)
	}

	return rep, nil
}

func (r *ReportRepo) ListByStatus(ctx context.Context, status string, limit int) ([]model.Report, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if status == "" {
		status = model.ReportStatusOpen
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, reporter_user_id, reported_user_id, reason, COALESCE(details, ''),
	status, COALESCE(resolution, ''), resolved_by_user_id, resolved_at, created_at
FROM reports
WHERE status = $1
ORDER BY created_at ASC, id ASC
LIMIT $2
`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	items := make([]model.Report, 0, limit)
	for rows.Next() {
		var rep model.Report
		if err := rows.Scan(
			&rep.ID,
			&rep.ReporterUserID,
			&rep.ReportedUserID,
			&rep.Reason,
			&rep.Details,
			&rep.Status,
			&rep.Resolution,
			&rep.ResolvedByUserID,
			&rep.ResolvedAt,
			&rep.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		items = append(items, rep)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reports: %w", rows.Err())
	}

	return items, nil
}

func (r *ReportRepo) Resolve(ctx context.Context, tx pgx.Tx, reportID, adminUserID int64, status, resolution string, now time.Time) error {
	if reportID <= 0 || adminUserID <= 0 {
		return fmt.Errorf("invalid resolve payload")
	}
	if status != model.ReportStatusResolved && status != model.ReportStatusDismissed {
		return fmt.Errorf("invalid resolve status %q", status)
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result, err := tx.Exec(ctx, `
UPDATE reports
SET status = $2, resolution = $3, resolved_by_user_id = $4, resolved_at = $5
WHERE id = $1 AND status = 'open'
`, reportID, status, strings.TrimSpace(resolution), adminUserID, now.UTC())
	if err != nil {
		return fmt.Errorf("resolve report: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}
