package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BlockRepo struct {
	pool *pgxpool.Pool
}

func NewBlockRepo(pool *pgxpool.Pool) *BlockRepo {
	return &BlockRepo{pool: pool}
}

func (r *BlockRepo) Upsert(ctx context.Context, tx pgx.Tx, blockerUserID, blockedUserID int64, now time.Time) error {
	if blockerUserID <= 0 || blockedUserID <= 0 || blockerUserID == blockedUserID {
		return fmt.Errorf("invalid block payload")
	}
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO blocks (
	blocker_user_id,
	blocked_user_id,
	created_at
) VALUES ($1, $2, $3)
ON CONFLICT (blocker_user_id, blocked_user_id) DO NOTHING
`, blockerUserID, blockedUserID, now.UTC()); err != nil {
		return fmt.Errorf("upsert block: %w", err)
	}

	return nil
}

func (r *BlockRepo) Exists(ctx context.Context, userA, userB int64) (bool, error) {
	if userA <= 0 || userB <= 0 {
		return false, fmt.Errorf("invalid block pair")
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1 FROM blocks
	WHERE (blocker_user_id = $1 AND blocked_user_id = $2)
	   OR (blocker_user_id = $2 AND blocked_user_id = $1)
)
`, userA, userB).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check block: %w", err)
	}

	return exists, nil
}
