package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
)

var ErrSwipeNotFound = errors.New("swipe not found")

type SwipeRepo struct {
	pool *pgxpool.Pool
}

func NewSwipeRepo(pool *pgxpool.Pool) *SwipeRepo {
	return &SwipeRepo{pool: pool}
}

// Upsert records a decision for the (actor, target) pair. A repeat with the
// same direction is a replay and leaves the row untouched; a different
// direction overwrites the previous decision. Returns the stored row, the
// direction the pair held before this call (empty on first insert), and
// whether the row was newly inserted.
func (r *SwipeRepo) Upsert(ctx context.Context, tx pgx.Tx, swipe model.Swipe) (model.Swipe, enums.Direction, bool, error) {
	if swipe.ActorUserID <= 0 || swipe.TargetUserID <= 0 {
		return model.Swipe{}, "", false, fmt.Errorf("invalid swipe payload")
	}
	if tx == nil {
		return model.Swipe{}, "", false, fmt.Errorf("transaction is required")
	}
	now := swipe.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var (
		rec     model.Swipe
		prev    string
		created bool
	)
	err := tx.QueryRow(ctx, `
WITH existing AS (
	SELECT direction
	FROM swipes
	WHERE actor_user_id = $1 AND target_user_id = $2
), upserted AS (
	INSERT INTO swipes (
		actor_user_id,
		target_user_id,
		direction,
		idempotency_key,
		created_at,
		updated_at
	) VALUES ($1, $2, $3, $4, $5, $5)
	ON CONFLICT (actor_user_id, target_user_id) DO UPDATE SET
		direction = EXCLUDED.direction,
		idempotency_key = EXCLUDED.idempotency_key,
		updated_at = CASE
			WHEN swipes.direction = EXCLUDED.direction THEN swipes.updated_at
			ELSE EXCLUDED.updated_at
		END
	RETURNING id, actor_user_id, target_user_id, direction, idempotency_key,
		created_at, updated_at, (xmax = 0) AS created
)
SELECT u.id, u.actor_user_id, u.target_user_id, u.direction, u.idempotency_key,
	u.created_at, u.updated_at, u.created, COALESCE(e.direction, '')
FROM upserted u
LEFT JOIN existing e ON TRUE
`, swipe.ActorUserID, swipe.TargetUserID, string(swipe.Direction), swipe.IdempotencyKey, now.UTC()).Scan(
		&rec.ID,
		&rec.ActorUserID,
		&rec.TargetUserID,
		&rec.Direction,
		&rec.IdempotencyKey,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&created,
		&prev,
	)
	if err != nil {
		return model.Swipe{}, "", false, fmt.Errorf("upsert swipe: %w", err)
	}

	return rec, enums.Direction(prev), created, nil
}

func (r *SwipeRepo) Get(ctx context.Context, actorUserID, targetUserID int64) (model.Swipe, error) {
	if actorUserID <= 0 || targetUserID <= 0 {
		return model.Swipe{}, fmt.Errorf("invalid swipe pair")
	}

	var rec model.Swipe
	err := r.pool.QueryRow(ctx, `
SELECT id, actor_user_id, target_user_id, direction, idempotency_key, created_at, updated_at
FROM swipes
WHERE actor_user_id = $1 AND target_user_id = $2
`, actorUserID, targetUserID).Scan(
		&rec.ID,
		&rec.ActorUserID,
		&rec.TargetUserID,
		&rec.Direction,
		&rec.IdempotencyKey,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Swipe{}, ErrSwipeNotFound
		}
		return model.Swipe{}, fmt.Errorf("get swipe: %w", err)
	}

	return rec, nil
}

// HasPositive reports whether actor has an effective like or super_like on
// target. Runs inside the swipe transaction to keep match detection atomic.
func (r *SwipeRepo) HasPositive(ctx context.Context, tx pgx.Tx, actorUserID, targetUserID int64) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}

	var direction string
	err := tx.QueryRow(ctx, `
SELECT direction
FROM swipes
WHERE actor_user_id = $1 AND target_user_id = $2
`, actorUserID, targetUserID).Scan(&direction)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check reciprocal swipe: %w", err)
	}

	return enums.Direction(direction).Positive(), nil
}

// IncomingLikers lists users whose latest decision on userID is positive and
// who are not yet matched with them, newest first.
func (r *SwipeRepo) IncomingLikers(ctx context.Context, userID int64, limit int) ([]model.Swipe, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
SELECT s.id, s.actor_user_id, s.target_user_id, s.direction, s.idempotency_key, s.created_at, s.updated_at
FROM swipes s
WHERE s.target_user_id = $1
  AND s.direction IN ('like', 'super_like')
  AND NOT EXISTS (
	SELECT 1 FROM matches m
	WHERE m.user_a_id = LEAST(s.actor_user_id, s.target_user_id)
	  AND m.user_b_id = GREATEST(s.actor_user_id, s.target_user_id)
	  AND m.status = 'active'
  )
ORDER BY s.updated_at DESC, s.id DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list incoming likers: %w", err)
	}
	defer rows.Close()

	var out []model.Swipe
	for rows.Next() {
		var rec model.Swipe
		if err := rows.Scan(
			&rec.ID,
			&rec.ActorUserID,
			&rec.TargetUserID,
			&rec.Direction,
			&rec.IdempotencyKey,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan incoming liker: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incoming likers: %w", err)
	}

	return out, nil
}

// CountIncomingLikers is the teaser number shown to tiers that cannot see
// the likers themselves.
func (r *SwipeRepo) CountIncomingLikers(ctx context.Context, userID int64) (int, error) {
	if userID <= 0 {
		return 0, fmt.Errorf("invalid user id")
	}

	var count int
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)::int
FROM swipes s
WHERE s.target_user_id = $1
  AND s.direction IN ('like', 'super_like')
  AND NOT EXISTS (
	SELECT 1 FROM matches m
	WHERE m.user_a_id = LEAST(s.actor_user_id, s.target_user_id)
	  AND m.user_b_id = GREATEST(s.actor_user_id, s.target_user_id)
	  AND m.status = 'active'
  )
`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count incoming likers: %w", err)
	}

	return count, nil
}
