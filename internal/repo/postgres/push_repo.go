package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/encontrocomfe/backend/internal/domain/model"
)

type PushRepo struct {
	pool *pgxpool.Pool
}

func NewPushRepo(pool *pgxpool.Pool) *PushRepo {
	return &PushRepo{pool: pool}
}

func (r *PushRepo) Subscribe(ctx context.Context, userID int64, token, platform string, now time.Time) error {
	if userID <= 0 || strings.TrimSpace(token) == "" {
		return fmt.Errorf("invalid push subscription payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO push_subscriptions (user_id, token, platform, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (token) DO UPDATE SET
	user_id = EXCLUDED.user_id,
	platform = EXCLUDED.platform,
	updated_at = EXCLUDED.updated_at
`, userID, strings.TrimSpace(token), strings.TrimSpace(platform), now.UTC()); err != nil {
		return fmt.Errorf("subscribe push token: %w", err)
	}

	return nil
}

func (r *PushRepo) DeleteToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("invalid push token")
	}

	if _, err := r.pool.Exec(ctx, `
DELETE FROM push_subscriptions
WHERE token = $1
`, strings.TrimSpace(token)); err != nil {
		return fmt.Errorf("delete push token: %w", err)
	}

	return nil
}

func (r *PushRepo) TokensForUser(ctx context.Context, userID int64) ([]string, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("invalid user id")
	}

	rows, err := r.pool.Query(ctx, `
SELECT token
FROM push_subscriptions
WHERE user_id = $1
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list push tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan push token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate push tokens: %w", rows.Err())
	}

	return tokens, nil
}

const audienceFilterSQL = `
FROM push_subscriptions ps
JOIN users u ON u.id = ps.user_id
LEFT JOIN profiles p ON p.user_id = ps.user_id
WHERE u.suspended = FALSE
  AND ($1::boolean = FALSE OR EXISTS (
	SELECT 1 FROM user_subscriptions s
	WHERE s.user_id = ps.user_id
	  AND s.tier = $2
	  AND s.status = 'active'
	  AND (s.expires_at IS NULL OR s.expires_at > NOW())
  ))
  AND ($3::boolean = FALSE OR UPPER(COALESCE(p.state, '')) = UPPER($4))
  AND ($5::boolean = FALSE OR COALESCE(p.city_id, 0) = $6)
  AND ($7::boolean = FALSE OR p.last_active_at >= $8::timestamptz)
`

// CountAudience sizes a campaign before dispatch so empty selections are
// rejected instead of silently sent to nobody.
func (r *PushRepo) CountAudience(ctx context.Context, a model.CampaignAudience) (int, error) {
	args, err := audienceArgs(a)
	if err != nil {
		return 0, err
	}

	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT ps.user_id)::int `+audienceFilterSQL, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count campaign audience: %w", err)
	}

	return count, nil
}

func (r *PushRepo) AudienceTokens(ctx context.Context, a model.CampaignAudience) ([]string, error) {
	args, err := audienceArgs(a)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT ps.token `+audienceFilterSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaign audience tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan audience token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate audience tokens: %w", rows.Err())
	}

	return tokens, nil
}

func audienceArgs(a model.CampaignAudience) ([]any, error) {
	var activeSince time.Time
	if strings.TrimSpace(a.ActiveSince) != "" {
		parsed, err := time.Parse("2006-01-02", a.ActiveSince)
		if err != nil {
			return nil, fmt.Errorf("parse audience active_since: %w", err)
		}
		activeSince = parsed
	}

	return []any{
		strings.TrimSpace(a.Tier) != "",  // $1
		strings.TrimSpace(a.Tier),        // $2
		strings.TrimSpace(a.State) != "", // $3
		strings.TrimSpace(a.State),       // $4
		a.CityID > 0,                     // $5
		a.CityID,                         // $6
		!activeSince.IsZero(),            // $7
		activeSince,                      // $8
	}, nil
}
