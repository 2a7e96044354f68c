package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

type AuditEntry struct {
	ID          int64
	AdminUserID int64
	Action      string
	TargetID    string
	Details     map[string]any
	CreatedAt   time.Time
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// Record appends one back-office action to the audit trail. Runs inside the
// same transaction as the action itself.
func (r *AuditRepo) Record(ctx context.Context, tx pgx.Tx, adminUserID int64, action, targetID string, details map[string]any) error {
	if adminUserID <= 0 || strings.TrimSpace(action) == "" {
		return fmt.Errorf("invalid audit payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}

	payload := "{}"
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		payload = string(raw)
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO admin_audit_logs (admin_user_id, action, target_id, details, created_at)
VALUES ($1, $2, $3, $4::jsonb, NOW())
`, adminUserID, strings.TrimSpace(action), strings.TrimSpace(targetID), payload); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}

	return nil
}

func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, admin_user_id, action, COALESCE(target_id, ''), details, created_at
FROM admin_audit_logs
ORDER BY created_at DESC, id DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	items := make([]AuditEntry, 0, limit)
	for rows.Next() {
		var (
			entry AuditEntry
			raw   []byte
		)
		if err := rows.Scan(&entry.ID, &entry.AdminUserID, &entry.Action, &entry.TargetID, &raw, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &entry.Details)
		}
		items = append(items, entry)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", rows.Err())
	}

	return items, nil
}
