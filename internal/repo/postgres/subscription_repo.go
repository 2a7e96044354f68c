package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encontrocomfe/backend/internal/domain/enums"
	"github.com/encontrocomfe/backend/internal/domain/model"
)

type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

// ActiveTier resolves the user's current tier: the highest-ranked active,
// unexpired subscription, or none.
func (r *SubscriptionRepo) ActiveTier(ctx context.Context, userID int64, now time.Time) (enums.Tier, error) {
	if userID <= 0 {
		return enums.TierNone, fmt.Errorf("invalid user id")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	rows, err := r.pool.Query(ctx, `
SELECT tier
FROM user_subscriptions
WHERE user_id = $1
  AND status = 'active'
  AND (expires_at IS NULL OR expires_at > $2)
`, userID, now.UTC())
	if err != nil {
		return enums.TierNone, fmt.Errorf("get active tier: %w", err)
	}
	defer rows.Close()

	best := enums.TierNone
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return enums.TierNone, fmt.Errorf("scan tier: %w", err)
		}
		if tier, ok := enums.ParseTier(raw); ok && tier.AtLeast(best) {
			best = tier
		}
	}
	if rows.Err() != nil {
		return enums.TierNone, fmt.Errorf("iterate tiers: %w", rows.Err())
	}

	return best, nil
}

// Grant opens a subscription at the given tier inside the purchase
// confirmation transaction. An active subscription at the same tier is
// extended instead of duplicated.
func (r *SubscriptionRepo) Grant(ctx context.Context, tx pgx.Tx, userID int64, tier enums.Tier, periodDays int, now time.Time) (model.Subscription, error) {
	if userID <= 0 || periodDays <= 0 {
		return model.Subscription{}, fmt.Errorf("invalid grant payload")
	}
	if tx == nil {
		return model.Subscription{}, fmt.Errorf("transaction is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var sub model.Subscription
	err := tx.QueryRow(ctx, `
INSERT INTO user_subscriptions (
	user_id,
	tier,
	status,
	started_at,
	expires_at,
	created_at,
	updated_at
) VALUES ($1, $2, 'active', $3, $3 + make_interval(days => $4), $3, $3)
ON CONFLICT (user_id, tier) WHERE status = 'active' DO UPDATE SET
	expires_at = GREATEST(user_subscriptions.expires_at, EXCLUDED.started_at) + make_interval(days => $4),
	updated_at = EXCLUDED.updated_at
RETURNING id, user_id, tier, status, started_at, expires_at, created_at, updated_at
`, userID, string(tier), now.UTC(), periodDays).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Tier,
		&sub.Status,
		&sub.StartedAt,
		&sub.ExpiresAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return model.Subscription{}, fmt.Errorf("grant subscription: %w", err)
	}

	return sub, nil
}

func (r *SubscriptionRepo) ListForUser(ctx context.Context, userID int64) ([]model.Subscription, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_id, tier, status, started_at, expires_at, created_at, updated_at
FROM user_subscriptions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var items []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		if err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.Tier,
			&sub.Status,
			&sub.StartedAt,
			&sub.ExpiresAt,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		items = append(items, sub)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", rows.Err())
	}

	return items, nil
}

// ExpireLapsed flips active subscriptions whose expiry passed. Used by the
// cleanup job.
func (r *SubscriptionRepo) ExpireLapsed(ctx context.Context, now time.Time) (int64, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE user_subscriptions
SET status = 'expired', updated_at = $1
WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at < $1
`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("expire lapsed subscriptions: %w", err)
	}

	return tag.RowsAffected(), nil
}
